package service

import "fmt"

// blessingMessages содержит тексты благословений по завершении пуджи.
var blessingMessages = map[string]string{
	"ganesha": "May all obstacles dissolve from your path.",
	"shiva":   "May stillness and strength dwell within you.",
	"krishna": "May joy and devotion fill your every day.",
	"hanuman": "May courage and loyalty guide your heart.",
	"durga":   "May fierce protection surround you always.",
	"lakshmi": "May abundance and grace flow into your home.",
}

// specialBlessingMessages содержат тексты особых благословений за подношение.
var specialBlessingMessages = map[string]string{
	"ganesha": "Your offering is accepted; new beginnings open before you.",
	"shiva":   "Your offering is accepted; may transformation bless you.",
	"krishna": "Your offering is accepted; divine love embraces you.",
	"hanuman": "Your offering is accepted; unshakeable strength is yours.",
	"durga":   "Your offering is accepted; no harm shall reach you.",
	"lakshmi": "Your offering is accepted; prosperity follows your generosity.",
}

func blessingFor(deityID string) string {
	if msg, ok := blessingMessages[deityID]; ok {
		return msg
	}
	return fmt.Sprintf("May the blessings of %s be with you.", deityID)
}

func specialBlessingFor(deityID string) string {
	if msg, ok := specialBlessingMessages[deityID]; ok {
		return msg
	}
	return fmt.Sprintf("Your offering to %s is accepted with grace.", deityID)
}
