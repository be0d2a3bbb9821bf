package excise

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"brauer/internal/domain/stockdoc"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		kind    stockdoc.IssueKind
		purpose stockdoc.IssuePurpose
		mType   MovementType
		dir     Direction
	}{
		{stockdoc.KindReceipt, stockdoc.PurposeProductionIn, MovementProduction, DirectionIn},
		{stockdoc.KindReceipt, stockdoc.PurposeTransfer, MovementTransferIn, DirectionIn},
		{stockdoc.KindReceipt, stockdoc.PurposeOther, MovementProduction, DirectionIn},
		{stockdoc.KindReceipt, stockdoc.PurposeSale, MovementProduction, DirectionIn},
		{stockdoc.KindIssue, stockdoc.PurposeSale, MovementRelease, DirectionOut},
		{stockdoc.KindIssue, stockdoc.PurposeWaste, MovementDestruction, DirectionOut},
		{stockdoc.KindIssue, stockdoc.PurposeTransfer, MovementTransferOut, DirectionOut},
		{stockdoc.KindIssue, stockdoc.PurposeOther, MovementRelease, DirectionOut},
		{stockdoc.KindIssue, stockdoc.PurposeProductionIn, MovementRelease, DirectionOut},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+string(tt.purpose), func(t *testing.T) {
			mType, dir, ok := Classify(tt.kind, tt.purpose)
			assert.True(t, ok)
			assert.Equal(t, tt.mType, mType)
			assert.Equal(t, tt.dir, dir)
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		_, _, ok := Classify(stockdoc.IssueKind("inventory"), stockdoc.PurposeOther)
		assert.False(t, ok)
	})
}
