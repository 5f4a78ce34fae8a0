package domain_test

import (
	"testing"

	pricingdomain "github.com/smallbiznis/blastwave/internal/pricing/domain"
	"github.com/stretchr/testify/assert"
)

func TestResolveCountry(t *testing.T) {
	cases := []struct {
		phone string
		want  string
	}{
		{"919876543210", "IN"},
		{"+919876543210", "IN"},
		{"14155552671", "US"},
		{"447911123456", "GB"},
		{"5511998765432", "BR"},
		{"971501234567", "AE"},
		{"8801712345678", "BD"},
		{"6281234567890", "ID"},
		{"000123", "OTHER"},
		{"", "OTHER"},
		{"+", "OTHER"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, pricingdomain.ResolveCountry(tc.phone), "phone %q", tc.phone)
	}
}
