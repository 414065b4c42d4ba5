package scoring

import "github.com/streakworks/tally/internal/types"

// Verified reports whether a check-in's metadata satisfies the template's
// verification policy. It runs strictly before scoring; an unverified
// check-in never produces points.
//
// Precedence, highest first: no policy configured (default allow), admin
// override, auto-import-only rejection of manual sources, confirmation
// requirement, timer minimum duration.
func Verified(meta *types.CheckinMetadata, vc *types.VerificationConfig) bool {
	if vc == nil {
		return true
	}
	if meta != nil && meta.AdminOverride {
		return true
	}

	if vc.AutoImportOnly && metaSource(meta) == "manual" {
		return false
	}

	if vc.RequiresConfirmation && (meta == nil || !meta.Confirmed) {
		return false
	}

	if vc.Method == types.VerifyTimerBased && vc.MinDurationSeconds > 0 {
		if timerSeconds(meta) < vc.MinDurationSeconds {
			return false
		}
	}

	return true
}

func metaSource(meta *types.CheckinMetadata) string {
	if meta == nil {
		return ""
	}
	return meta.Source
}

// timerSeconds returns the measured duration of a timer-backed check-in,
// preferring the explicit duration over the start/complete stamps.
func timerSeconds(meta *types.CheckinMetadata) int {
	if meta == nil {
		return 0
	}
	if meta.DurationSeconds != nil {
		return *meta.DurationSeconds
	}
	if meta.TimerStartedAt != nil && meta.TimerCompletedAt != nil {
		secs := int(meta.TimerCompletedAt.Sub(*meta.TimerStartedAt).Seconds())
		if secs > 0 {
			return secs
		}
	}
	return 0
}
