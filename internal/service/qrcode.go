package service

import (
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// QRGenerator renders PNG QR codes
type QRGenerator interface {
	Generate(content string) ([]byte, error)
}

// DefaultQRGenerator encodes 256px PNGs at medium error correction
type DefaultQRGenerator struct{}

// Generate implements QRGenerator
func (DefaultQRGenerator) Generate(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, 256)
}

// MenuLink returns the public URL of a vendor's menu
func MenuLink(baseURL, vendorID string) string {
	return strings.TrimSuffix(baseURL, "/") + "/api/vendors/" + url.PathEscape(vendorID) + "/menu"
}
