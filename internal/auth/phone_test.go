// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		region  string
		want    string
		wantErr bool
	}{
		{"national mobile", "13800138000", "CN", "+8613800138000", false},
		{"with spaces", " 138 0013 8000 ", "CN", "+8613800138000", false},
		{"international", "+86 138-0013-8000", "US", "+8613800138000", false},
		{"empty", "", "CN", "", true},
		{"letters", "phone", "CN", "", true},
		{"too short", "1380013", "CN", "", true},
		{"landline", "01012345678", "CN", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw, tt.region)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPhone) {
					t.Errorf("NormalizePhone(%q) error = %v, want ErrInvalidPhone", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePhone(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMaskPhone(t *testing.T) {
	if got := MaskPhone("+8613800138000"); got != "+86138****8000" {
		t.Errorf("MaskPhone = %q", got)
	}
	if got := MaskPhone("123"); got != "****" {
		t.Errorf("MaskPhone short = %q", got)
	}
}

func TestParseAdminPhones(t *testing.T) {
	admins, err := ParseAdminPhones([]string{"13800138000", " ", "+86 139 0013 9000"}, "CN")
	if err != nil {
		t.Fatalf("ParseAdminPhones: %v", err)
	}
	if len(admins) != 2 {
		t.Errorf("len = %d, want 2", len(admins))
	}
	if !admins.Contains("+8613800138000") || !admins.Contains("+8613900139000") {
		t.Errorf("admins = %v", admins)
	}
	if admins.Contains("+8613700137000") {
		t.Error("unexpected admin")
	}

	if _, err := ParseAdminPhones([]string{"nope"}, "CN"); err == nil {
		t.Error("ParseAdminPhones should reject invalid numbers")
	}
}
