// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geoip

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Disabled(t *testing.T) {
	l, err := Open("")
	require.NoError(t, err)
	assert.False(t, l.Enabled())
	assert.NoError(t, l.Reload())
	assert.NoError(t, l.Close())
}

func TestOpen_Missing(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "GeoLite2-Country.mmdb"))
	assert.Error(t, err)
	require.NotNil(t, l)
	assert.False(t, l.Enabled())
	assert.Equal(t, Local, l.Country("127.0.0.1"), "local addresses still resolve")
}

func TestOpen_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mmdb")
	require.NoError(t, os.WriteFile(path, []byte("not a maxmind database"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestCountry(t *testing.T) {
	var l Lookup

	tests := []struct {
		ip   string
		want string
	}{
		{"127.0.0.1", Local},
		{"::1", Local},
		{"10.1.2.3", Local},
		{"192.168.0.10", Local},
		{"172.16.5.4", Local},
		{"fe80::1", Local},
		{"8.8.8.8", ""},
		{"not-an-ip", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, l.Country(tt.ip), tt.ip)
	}
}
