package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// LineKind tags the CartLine variant.
type LineKind string

const (
	LineProduct LineKind = "product"
	LinePackage LineKind = "package"
)

// Customizations lists add-on names requested for an item. Removed is display only.
type Customizations struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// CartLine is one untrusted cart entry. Exactly one of ProductID/PackageID is set,
// matching Kind.
type CartLine struct {
	Kind                  LineKind
	ProductID             string
	PackageID             string
	Quantity              int
	Customizations        Customizations
	PackageCustomizations map[string]Customizations
}

// ProductLine builds a product cart line.
func ProductLine(productID string, quantity int, added ...string) CartLine {
	return CartLine{
		Kind:           LineProduct,
		ProductID:      productID,
		Quantity:       quantity,
		Customizations: Customizations{Added: added},
	}
}

// PackageLine builds a package cart line.
func PackageLine(packageID string, quantity int, customizations map[string]Customizations) CartLine {
	return CartLine{
		Kind:                  LinePackage,
		PackageID:             packageID,
		Quantity:              quantity,
		PackageCustomizations: customizations,
	}
}

// Validate checks the union invariants.
func (l CartLine) Validate() error {
	switch l.Kind {
	case LineProduct:
		if strings.TrimSpace(l.ProductID) == "" || l.PackageID != "" {
			return validationError("Each item must have either productId or packageId")
		}
	case LinePackage:
		if strings.TrimSpace(l.PackageID) == "" || l.ProductID != "" {
			return validationError("Each item must have either productId or packageId")
		}
	default:
		return validationError("Each item must have either productId or packageId")
	}
	if l.Quantity <= 0 {
		return validationError(fmt.Sprintf("Invalid quantity for item %s: must be a positive integer", l.id()))
	}
	return nil
}

func (l CartLine) id() string {
	if l.Kind == LinePackage {
		return l.PackageID
	}
	return l.ProductID
}

type wireLine struct {
	ProductID             string                    `json:"productId"`
	PackageID             string                    `json:"packageId"`
	Quantity              *int                      `json:"quantity" validate:"required,gt=0"`
	Customizations        *Customizations           `json:"customizations"`
	PackageCustomizations map[string]Customizations `json:"packageCustomizations"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseCartLines decodes the raw `items` value of a request body. It rejects a
// missing or non-array value, lines with neither or both ids, and lines without a
// positive integer quantity.
func ParseCartLines(raw json.RawMessage) ([]CartLine, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, validationError("Request body must contain an array of items.")
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, validationError("Request body must contain an array of items.")
	}
	lines := make([]CartLine, 0, len(entries))
	for _, entry := range entries {
		line, err := parseLine(entry)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func parseLine(entry json.RawMessage) (CartLine, error) {
	invalid := validationError(fmt.Sprintf("Invalid item in cart: %s", compact(entry)))
	var w wireLine
	if err := json.Unmarshal(entry, &w); err != nil {
		return CartLine{}, invalid
	}
	productID := strings.TrimSpace(w.ProductID)
	packageID := strings.TrimSpace(w.PackageID)
	if (productID == "") == (packageID == "") {
		return CartLine{}, validationError("Each item must have either productId or packageId")
	}
	if err := validate.Struct(w); err != nil {
		return CartLine{}, invalid
	}
	if packageID != "" {
		return CartLine{
			Kind:                  LinePackage,
			PackageID:             packageID,
			Quantity:              *w.Quantity,
			PackageCustomizations: w.PackageCustomizations,
		}, nil
	}
	line := CartLine{Kind: LineProduct, ProductID: productID, Quantity: *w.Quantity}
	if w.Customizations != nil {
		line.Customizations = *w.Customizations
	}
	return line, nil
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
