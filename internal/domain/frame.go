package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Destination selects which storefront URL a frame redirects to
type Destination string

const (
	DestinationProduct Destination = "product"
	DestinationCart    Destination = "cart"
)

// NewFrameID is the sentinel identifier used by the admin form to create a frame
const NewFrameID = "new"

// Frame represents one trackable redirect target owned by a shop
type Frame struct {
	ID               int64       `json:"id"`
	Shop             string      `json:"shop"`
	Title            string      `json:"title"`
	Image            string      `json:"image"`
	Button           string      `json:"button"`
	Destination      Destination `json:"destination"`
	ProductID        string      `json:"productId"`
	ProductVariantID string      `json:"productVariantId"`
	ProductHandle    string      `json:"productHandle"`
	Scans            int64       `json:"scans"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// FrameView is a frame supplemented with data computed at read time
type FrameView struct {
	Frame
	DestinationURL   string `json:"destinationUrl,omitempty"`
	DestinationError string `json:"destinationError,omitempty"`
	ImageDataURL     string `json:"imageDataUrl,omitempty"`
	ProductTitle     string `json:"productTitle,omitempty"`
	ProductImage     string `json:"productImage,omitempty"`
}

// BlankFrame returns the template shown when creating a new frame
func BlankFrame() *Frame {
	return &Frame{Destination: DestinationProduct}
}

// DisplayText is the text rendered on the frame graphic
func (f *Frame) DisplayText() string {
	if f.Button != "" {
		return f.Button
	}
	return f.Title
}

var (
	variantGIDPattern = regexp.MustCompile(`^gid://shopify/ProductVariant/(\d+)$`)
	productGIDPattern = regexp.MustCompile(`^gid://shopify/Product/(\d+)$`)
)

// DestinationURL computes where a scan of the frame should land.
// Product frames go to the storefront product page; everything else goes to
// a cart permalink holding one unit of the variant.
func DestinationURL(f *Frame) (string, error) {
	if f.Destination == DestinationProduct {
		return fmt.Sprintf("https://%s/products/%s", f.Shop, f.ProductHandle), nil
	}

	variantID, err := ParseVariantGID(f.ProductVariantID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s/cart/%d:1", f.Shop, variantID), nil
}

// ParseVariantGID extracts the numeric id from gid://shopify/ProductVariant/<n>
func ParseVariantGID(ref string) (uint64, error) {
	m := variantGIDPattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, &InvalidVariantReferenceError{Reference: ref}
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, &InvalidVariantReferenceError{Reference: ref}
	}
	return id, nil
}

// ParseProductGID extracts the numeric id from gid://shopify/Product/<n>.
// ok is false when ref is not a product GID.
func ParseProductGID(ref string) (id uint64, ok bool) {
	m := productGIDPattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ProductGID formats a REST product id as an admin GraphQL GID
func ProductGID(id uint64) string {
	return "gid://shopify/Product/" + strconv.FormatUint(id, 10)
}
