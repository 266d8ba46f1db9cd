package models

import (
	"errors"
	"fmt"
	"strings"
)

// DeliveryMode is the seller-chosen strategy for granting access after payment.
type DeliveryMode string

const (
	DeliveryNone           DeliveryMode = "none"
	DeliveryDirectDownload DeliveryMode = "direct_download"
	DeliveryKeyAccess      DeliveryMode = "key_access"
	DeliveryViewOnly       DeliveryMode = "view_only"
)

var ErrInvalidDelivery = errors.New("invalid delivery")

// ParseDeliveryMode accepts the canonical names plus the legacy "download"
// and "physical" spellings still present in older product rows.
func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "physical":
		return DeliveryNone, nil
	case "direct_download", "download":
		return DeliveryDirectDownload, nil
	case "key_access":
		return DeliveryKeyAccess, nil
	case "view_only":
		return DeliveryViewOnly, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidDelivery, s)
	}
}

// Delivery is a tagged variant: exactly one concrete type per mode, each
// carrying only the payload that mode needs.
type Delivery interface {
	Mode() DeliveryMode
	isDelivery()
}

type PhysicalDelivery struct{}

// DownloadDelivery surfaces an uploaded file to the buyer as-is.
type DownloadDelivery struct {
	FileURL string
}

// KeyAccessDelivery surfaces a seller-authored secret (key, link or password).
type KeyAccessDelivery struct {
	Secret string
}

// ViewOnlyDelivery gates a file behind a per-order generated access key.
type ViewOnlyDelivery struct {
	FileURL string
}

func (PhysicalDelivery) Mode() DeliveryMode  { return DeliveryNone }
func (DownloadDelivery) Mode() DeliveryMode  { return DeliveryDirectDownload }
func (KeyAccessDelivery) Mode() DeliveryMode { return DeliveryKeyAccess }
func (ViewOnlyDelivery) Mode() DeliveryMode  { return DeliveryViewOnly }

func (PhysicalDelivery) isDelivery()  {}
func (DownloadDelivery) isDelivery()  {}
func (KeyAccessDelivery) isDelivery() {}
func (ViewOnlyDelivery) isDelivery()  {}

// NewDelivery builds the variant for mode. The payload that does not belong
// to the mode must be empty.
func NewDelivery(mode DeliveryMode, fileURL, staticKey string) (Delivery, error) {
	fileURL = strings.TrimSpace(fileURL)
	staticKey = strings.TrimSpace(staticKey)

	switch mode {
	case DeliveryNone:
		if fileURL != "" || staticKey != "" {
			return nil, fmt.Errorf("%w: physical products carry no payload", ErrInvalidDelivery)
		}
		return PhysicalDelivery{}, nil
	case DeliveryDirectDownload, DeliveryViewOnly:
		if fileURL == "" {
			return nil, fmt.Errorf("%w: %s requires a file", ErrInvalidDelivery, mode)
		}
		if staticKey != "" {
			return nil, fmt.Errorf("%w: %s does not take a static key", ErrInvalidDelivery, mode)
		}
		if mode == DeliveryViewOnly {
			return ViewOnlyDelivery{FileURL: fileURL}, nil
		}
		return DownloadDelivery{FileURL: fileURL}, nil
	case DeliveryKeyAccess:
		if staticKey == "" {
			return nil, fmt.Errorf("%w: key_access requires a key", ErrInvalidDelivery)
		}
		if fileURL != "" {
			return nil, fmt.Errorf("%w: key_access does not take a file", ErrInvalidDelivery)
		}
		return KeyAccessDelivery{Secret: staticKey}, nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidDelivery, mode)
	}
}

// DeliveryColumns flattens a variant into the (mode, file_url, delivery_key)
// columns used by the products table.
func DeliveryColumns(d Delivery) (mode DeliveryMode, fileURL, staticKey *string) {
	switch v := d.(type) {
	case DownloadDelivery:
		return v.Mode(), &v.FileURL, nil
	case ViewOnlyDelivery:
		return v.Mode(), &v.FileURL, nil
	case KeyAccessDelivery:
		return v.Mode(), nil, &v.Secret
	default:
		return DeliveryNone, nil, nil
	}
}

// FileURLOf returns the shared file reference for modes that have one.
func FileURLOf(d Delivery) (string, bool) {
	switch v := d.(type) {
	case DownloadDelivery:
		return v.FileURL, true
	case ViewOnlyDelivery:
		return v.FileURL, true
	}
	return "", false
}
