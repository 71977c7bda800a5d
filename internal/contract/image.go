package contract

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	apperrors "github.com/tajious/ejare/internal/errors"
)

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

type imageRules struct {
	field     string
	maxBytes  int
	minWidth  int
	minHeight int
}

// checkDataURL decodes a base64 data URL and verifies the bytes are an
// allowed image whose sniffed type matches the declared one. Dimensions are
// checked for formats the standard decoders understand.
func checkDataURL(value string, rules imageRules) error {
	invalid := func(reason string) error {
		return apperrors.New(apperrors.CodeValidation, "تصویر ارسالی نامعتبر است").
			WithDetails(map[string]string{rules.field: reason})
	}

	header, payload, ok := strings.Cut(strings.TrimSpace(value), ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return invalid("data_url")
	}
	declared := normaliseImageType(strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64"))

	if rules.maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > rules.maxBytes+2 {
		return invalid("too_large")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return invalid("base64")
	}
	if len(data) == 0 {
		return invalid("empty")
	}
	if rules.maxBytes > 0 && len(data) > rules.maxBytes {
		return invalid("too_large")
	}

	sniffed := mimetype.Detect(data).String()
	if !allowedImageTypes[sniffed] {
		return invalid("type")
	}
	if declared != sniffed {
		return invalid("type_mismatch")
	}

	if sniffed == "image/webp" {
		return nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return invalid("decode")
	}
	if cfg.Width < rules.minWidth || cfg.Height < rules.minHeight {
		return invalid("dimensions")
	}
	return nil
}

func normaliseImageType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "image/jpg" {
		return "image/jpeg"
	}
	return t
}
