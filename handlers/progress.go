package handlers

import (
	"lessonlens/api-gateway/internal/transcription"
	"lessonlens/api-gateway/models"
)

// The derived stage reported while the remote transcript is done but
// completion has not been requested yet. It is never persisted; the row
// stays in transcribing until the completion step moves it forward.
const stageTranscribed = "transcribed"

// Progress values form a ladder so pollers never see the number move
// backwards while a job advances.
const (
	progressAwaiting    = 5
	progressStaged      = 25
	progressQueued      = 35
	progressProcessing  = 55
	progressTranscribed = 75
	progressScoring     = 85
	progressCompleted   = 100
)

// progressFor maps a persisted status plus the live transcription state to
// the externally reported stage and percentage.
func progressFor(status string, remote string) (string, int) {
	switch status {
	case models.StatusAwaitingUpload:
		return status, progressAwaiting
	case models.StatusStaged:
		return status, progressStaged
	case models.StatusTranscribing:
		switch remote {
		case transcription.StatusProcessing:
			return status, progressProcessing
		case transcription.StatusCompleted:
			return stageTranscribed, progressTranscribed
		default:
			return status, progressQueued
		}
	case models.StatusScoring:
		return status, progressScoring
	case models.StatusCompleted:
		return status, progressCompleted
	default:
		return status, 0
	}
}
