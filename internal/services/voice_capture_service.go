package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/finlens/backend/internal/middleware"
	"github.com/finlens/backend/internal/models"
)

// VoiceCaptureService turns a spoken phrase into a draft transaction. The
// transcript is matched against the category catalog so the client can
// prefill the entry form; nothing is persisted here.
type VoiceCaptureService struct {
	client *speech.Client
}

type CaptureRequest struct {
	Audio        string `json:"audio" validate:"required"`
	Encoding     string `json:"encoding"`
	SampleRate   int    `json:"sampleRate"`
	LanguageCode string `json:"languageCode"`
}

type CaptureResponse struct {
	Transcript          string  `json:"transcript"`
	Confidence          float32 `json:"confidence"`
	Duration            float64 `json:"durationSeconds"`
	SuggestedType       string  `json:"suggestedType,omitempty"`
	SuggestedCategoryID int     `json:"suggestedCategoryId,omitempty"`
}

func NewVoiceCaptureService() *VoiceCaptureService {
	ctx := context.Background()
	client, err := speech.NewClient(ctx)
	if err != nil {
		log.Printf("[VOICE] Speech client unavailable, using mock transcription: %v", err)
		return &VoiceCaptureService{client: nil}
	}
	return &VoiceCaptureService{client: client}
}

// HandleCapture transcribes a spoken transaction description
// @Summary Capture a transaction by voice
// @Description Transcribe audio and suggest a transaction type and category
// @Tags voice
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CaptureRequest true "Base64-encoded audio"
// @Success 200 {object} CaptureResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /transactions/voice-transcribe [post]
func (s *VoiceCaptureService) HandleCapture(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	// Audio payloads are bigger than normal requests.
	var req CaptureRequest
	if err := DecodeStrictLimit(w, r, &req, 10*1024*1024); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if req.Audio == "" {
		SendErrorResponse(w, "Audio is required", http.StatusBadRequest, nil)
		return
	}
	if req.Encoding == "" {
		req.Encoding = "LINEAR16"
	}
	if req.SampleRate == 0 {
		req.SampleRate = 16000
	}
	if req.LanguageCode == "" {
		req.LanguageCode = "en-US"
	}

	start := time.Now()
	transcript, confidence, err := s.Transcribe(r.Context(), req)
	if err != nil {
		log.Printf("[VOICE] Transcription failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to transcribe audio", http.StatusInternalServerError, nil)
		return
	}

	resp := CaptureResponse{
		Transcript: transcript,
		Confidence: confidence,
		Duration:   time.Since(start).Seconds(),
	}
	resp.SuggestedType, resp.SuggestedCategoryID = suggestCategory(transcript)

	log.Printf("[VOICE] Transcribed for user %d, confidence %.2f", userID, confidence)
	SendJSON(w, http.StatusOK, resp)
}

func (s *VoiceCaptureService) Transcribe(ctx context.Context, req CaptureRequest) (string, float32, error) {
	audioBytes, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return "", 0, fmt.Errorf("failed to decode audio: %w", err)
	}
	if len(audioBytes) == 0 {
		return "", 0, errors.New("audio data is empty")
	}

	if s.client == nil {
		return "Mock transcription: spent twenty dollars on groceries", 0.95, nil
	}

	encoding, err := parseEncoding(req.Encoding)
	if err != nil {
		return "", 0, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := s.client.Recognize(timeoutCtx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   encoding,
			SampleRateHertz:            int32(req.SampleRate),
			LanguageCode:               req.LanguageCode,
			EnableAutomaticPunctuation: true,
			Model:                      "latest_short",
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioBytes},
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("recognition failed: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", 0, errors.New("no transcription results")
	}

	var transcript strings.Builder
	var totalConfidence float32
	var count int
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		transcript.WriteString(alt.Transcript)
		transcript.WriteString(" ")
		totalConfidence += alt.Confidence
		count++
	}
	if count == 0 {
		return "", 0, errors.New("no alternatives in results")
	}

	return strings.TrimSpace(transcript.String()), totalConfidence / float32(count), nil
}

func parseEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}

// suggestCategory does a lowercase keyword match of the transcript against
// the category catalog. "received" and "earned" flip the suggestion to
// income; the default is an expense with no category.
func suggestCategory(transcript string) (string, int) {
	lower := strings.ToLower(transcript)

	txType := models.TransactionTypeExpense
	for _, marker := range []string{"received", "earned", "salary", "paid me", "income"} {
		if strings.Contains(lower, marker) {
			txType = models.TransactionTypeIncome
			break
		}
	}

	for _, c := range models.Categories {
		if c.Type == txType && strings.Contains(lower, strings.ToLower(c.Name)) {
			return txType, c.ID
		}
	}
	return txType, 0
}

func (s *VoiceCaptureService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
