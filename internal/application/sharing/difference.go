package sharing

import (
	"math"

	"commenergy-backend/internal/domain"
)

// Difference returns the change of a draft row's share against the original
// list in percentage points, rounded to 2 decimals. Rows without a share in
// the draft yield 0; rows missing from the original compare against 0.
func Difference(original []domain.CommunityContract, row domain.CommunityContract) float64 {
	if row.Sharing == nil || row.Sharing.Share == nil {
		return 0
	}
	base := 0.0
	for i := range original {
		if original[i].ID == row.ID {
			base = original[i].ShareValue()
			break
		}
	}
	return round2((*row.Sharing.Share - base) * 100)
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		// drop negative zero
		return 0
	}
	return r
}
