package service

import (
	"github.com/razchen/youtube-ingest/internal/model"
	"github.com/razchen/youtube-ingest/pkg/hash"
)

// AssignSplit deterministically maps a channel ID to a dataset split with an
// 80/10/10 train/val/test banding. Keying by channel (not video) keeps all of
// a channel's thumbnails in one split.
func AssignSplit(channelID string) string {
	switch b := hash.Bucket100(channelID); {
	case b < 80:
		return model.SplitTrain
	case b < 90:
		return model.SplitVal
	default:
		return model.SplitTest
	}
}
