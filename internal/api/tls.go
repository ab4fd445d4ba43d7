// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// tlsFiles resolves the configured certificate and key paths. Both empty
// means serve plain HTTP; both set and readable means serve HTTPS with the
// returned (tilde-expanded) paths. Anything in between is a configuration
// error, because serving crash telemetry over half-configured TLS would
// silently fall back to plaintext.
func tlsFiles(certPath, keyPath string) (string, string, error) {
	if certPath == "" && keyPath == "" {
		return "", "", nil
	}
	if certPath == "" || keyPath == "" {
		return "", "", errors.New("tls_cert and tls_key must be set together")
	}

	cert := expandHome(certPath)
	key := expandHome(keyPath)
	for name, path := range map[string]string{"tls_cert": cert, "tls_key": key} {
		if _, err := os.Stat(path); err != nil {
			return "", "", fmt.Errorf("%s: %w", name, err)
		}
	}
	return cert, key, nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}
