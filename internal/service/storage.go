package service

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrForeignFileURL is returned for file URLs outside the storage service
var ErrForeignFileURL = errors.New("file url is outside the storage service")

// StoragePolicy decides which file URLs the service may fetch or store.
// The zero value accepts any absolute http(s) URL.
type StoragePolicy struct {
	scheme string
	host   string
	prefix string
}

// NewStoragePolicy restricts file URLs to the given storage base. An empty
// base only enforces an absolute http(s) URL.
func NewStoragePolicy(base string) (StoragePolicy, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return StoragePolicy{}, nil
	}

	u, err := url.Parse(base)
	if err != nil {
		return StoragePolicy{}, fmt.Errorf("parse storage base: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return StoragePolicy{}, fmt.Errorf("storage base %q must be an absolute http(s) url", base)
	}

	prefix := path.Clean("/" + u.Path)
	if prefix != "/" {
		prefix += "/"
	}
	return StoragePolicy{
		scheme: u.Scheme,
		host:   strings.ToLower(u.Host),
		prefix: prefix,
	}, nil
}

// Allows reports whether raw points into the storage service
func (p StoragePolicy) Allows(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForeignFileURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: not an absolute http(s) url", ErrForeignFileURL)
	}
	if u.User != nil {
		return fmt.Errorf("%w: credentials in url", ErrForeignFileURL)
	}
	if p.host == "" {
		return nil
	}

	if u.Scheme != p.scheme || strings.ToLower(u.Host) != p.host {
		return fmt.Errorf("%w: host %s", ErrForeignFileURL, u.Host)
	}
	if p.prefix != "/" && !strings.HasPrefix(path.Clean("/"+u.Path), p.prefix) {
		return fmt.Errorf("%w: path %s", ErrForeignFileURL, u.Path)
	}
	return nil
}
