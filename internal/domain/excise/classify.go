package excise

import (
	"brauer/internal/domain/stockdoc"
)

// Classify maps a stock document's kind and purpose to the excise movement
// type and direction it produces.
//
//	receipt  production_in -> production   in
//	receipt  transfer      -> transfer_in  in
//	receipt  (other)       -> production   in
//	issue    sale          -> release      out
//	issue    waste         -> destruction  out
//	issue    transfer      -> transfer_out out
//	issue    (other)       -> release      out
func Classify(kind stockdoc.IssueKind, purpose stockdoc.IssuePurpose) (MovementType, Direction, bool) {
	switch kind {
	case stockdoc.KindReceipt:
		switch purpose {
		case stockdoc.PurposeTransfer:
			return MovementTransferIn, DirectionIn, true
		default:
			return MovementProduction, DirectionIn, true
		}
	case stockdoc.KindIssue:
		switch purpose {
		case stockdoc.PurposeSale:
			return MovementRelease, DirectionOut, true
		case stockdoc.PurposeWaste:
			return MovementDestruction, DirectionOut, true
		case stockdoc.PurposeTransfer:
			return MovementTransferOut, DirectionOut, true
		default:
			return MovementRelease, DirectionOut, true
		}
	}
	return "", "", false
}
