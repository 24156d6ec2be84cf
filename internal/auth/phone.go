// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidPhone is returned for numbers that are not valid mobile numbers.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone parses raw in the default region and returns it in E.164.
// Only mobile numbers are accepted since codes are sent by SMS.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	switch phonenumbers.GetNumberType(num) {
	case phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE:
	default:
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// MaskPhone hides the middle digits of a number for logs.
func MaskPhone(phone string) string {
	if len(phone) < 8 {
		return "****"
	}
	return phone[:len(phone)-8] + "****" + phone[len(phone)-4:]
}

// AdminPhones is the set of numbers that are granted admin rights on login.
type AdminPhones map[string]bool

// ParseAdminPhones normalizes a configured list of admin numbers.
func ParseAdminPhones(list []string, region string) (AdminPhones, error) {
	admins := make(AdminPhones, len(list))
	for _, raw := range list {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		phone, err := NormalizePhone(raw, region)
		if err != nil {
			return nil, fmt.Errorf("admin phone %q: %w", raw, err)
		}
		admins[phone] = true
	}
	return admins, nil
}

// Contains reports whether phone (E.164) is an admin number.
func (a AdminPhones) Contains(phone string) bool {
	return a[phone]
}
