// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package totp

import (
	"bytes"
	"encoding/base64"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/samber/oops"
)

// DefaultQRSize is the rendered QR code edge length in pixels.
const DefaultQRSize = 200

// QRRenderer renders provisioning URIs as PNG data URLs.
type QRRenderer struct {
	Size int
}

// Render encodes uri as a QR code and returns it as a data:image/png URL.
func (r QRRenderer) Render(uri string) (string, error) {
	if uri == "" {
		return "", oops.Errorf("provisioning uri cannot be empty")
	}
	size := r.Size
	if size <= 0 {
		size = DefaultQRSize
	}

	code, err := qr.Encode(uri, qr.M, qr.Auto)
	if err != nil {
		return "", oops.With("operation", "encode qr").Wrap(err)
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return "", oops.With("operation", "scale qr").With("size", size).Wrap(err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", oops.With("operation", "encode png").Wrap(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
