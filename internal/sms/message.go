package sms

import (
	"fmt"
	"strings"
	"time"

	"github.com/speettolab/speetto-monitor/internal/speetto"
)

// BuildAlertMessage renders the alert body for an eligible reading. The
// template is fixed; only the figures vary.
func BuildAlertMessage(game speetto.Game, round, stockRate, firstRemaining int, now time.Time) string {
	return fmt.Sprintf(
		"🚨 스피또 알림 🚨\n\n"+
			"%s %d회\n"+
			"📊 출고율: %d%%\n"+
			"🎰 1등 잔여: %d매\n\n"+
			"출고율 100%%에 1등이 남아있습니다!\n"+
			"지금이 구매 기회입니다! 🍀\n\n"+
			"시간: %s",
		game.Label(), round, stockRate, firstRemaining,
		now.Format("2006-01-02 15:04:05"))
}

// NormalizePhone strips every non-digit character
// (010-1234-5678 -> 01012345678).
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
