package sharing

import (
	"testing"

	"commenergy-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func row(id string, share *float64) domain.CommunityContract {
	cc := domain.CommunityContract{ID: id, CommunityID: "com-1"}
	if share != nil {
		cc.Sharing = &domain.Sharing{ID: "sh-" + id, CommunityContractID: id, Share: share, VersionID: "v1"}
	}
	return cc
}

func TestDifference(t *testing.T) {
	original := []domain.CommunityContract{row("1", f(0.10)), row("2", f(0.20)), row("3", nil), row("4", f(0))}

	tests := []struct {
		name string
		row  domain.CommunityContract
		want float64
	}{
		{"increase", row("1", f(0.15)), 5},
		{"unchanged", row("2", f(0.20)), 0},
		{"decrease", row("2", f(0.125)), -7.5},
		{"no share in draft", row("1", nil), 0},
		{"sharing without share", domain.CommunityContract{ID: "1", Sharing: &domain.Sharing{ID: "x"}}, 0},
		{"original without sharing", row("3", f(0.3333)), 33.33},
		{"original share zero", row("4", f(0.01)), 1},
		{"not in original", row("9", f(0.5)), 50},
		{"rounding", row("1", f(0.123456)), 2.35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Difference(original, tt.row))
		})
	}
}

func TestDifference_NoNegativeZero(t *testing.T) {
	original := []domain.CommunityContract{row("1", f(0.3))}
	d := Difference(original, row("1", f(0.3-1e-12)))
	assert.Equal(t, 0.0, d)
	assert.False(t, d < 0 || 1/d < 0, "expected +0")
}
