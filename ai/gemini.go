package ai

import (
	"Meduroam/models"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultModel   = "gemini-2.0-flash-exp"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
)

// Client calls the Gemini REST API to turn a symptom transcript into a
// structured consult output. It satisfies services.NoteGenerator. The
// model is instructed to answer in JSON matching notePayload; responses
// that do not unmarshal are returned as errors so the caller can fall
// back to the conservative canned note.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type geminiRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// notePayload is the JSON contract the model is asked to produce.
type notePayload struct {
	SOAPNote           models.SOAPNote       `json:"soap_note"`
	Reasoning          models.AIReasoning    `json:"reasoning"`
	PreliminaryUrgency models.Urgency        `json:"preliminary_urgency"`
	SuggestedProviders []models.ProviderType `json:"suggested_providers"`
}

func (c *Client) GenerateNote(ctx context.Context, transcript models.Transcript, patient models.Patient) (*models.AIConsultOutput, error) {
	reqBody := geminiRequest{
		Contents: []content{{
			Parts: []part{{Text: buildPrompt(transcript, patient)}},
		}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      0.2,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	output, err := parsePayload(geminiResp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}

	output.ID = uuid.New().String()
	output.PatientID = patient.ID
	output.TranscriptID = transcript.ID
	output.ModelVersion = c.model
	return output, nil
}

// parsePayload converts model text into the typed output. Prose never
// leaves this function; downstream code only ever sees the struct.
func parsePayload(text string) (*models.AIConsultOutput, error) {
	var payload notePayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("model output is not valid JSON: %w", err)
	}
	if !payload.PreliminaryUrgency.Valid() {
		return nil, fmt.Errorf("model returned unknown urgency: %s", payload.PreliminaryUrgency)
	}
	if len(payload.SuggestedProviders) == 0 {
		payload.SuggestedProviders = []models.ProviderType{models.ProviderGP}
	}
	for _, provider := range payload.SuggestedProviders {
		if !provider.Valid() {
			return nil, fmt.Errorf("model returned unknown provider type: %s", provider)
		}
	}

	return &models.AIConsultOutput{
		SOAP:               payload.SOAPNote,
		Reasoning:          payload.Reasoning,
		PreliminaryUrgency: payload.PreliminaryUrgency,
		SuggestedProviders: payload.SuggestedProviders,
	}, nil
}

func buildPrompt(transcript models.Transcript, patient models.Patient) string {
	var b strings.Builder
	b.WriteString("You are a clinical decision support AI assisting in primary care triage and assessment.\n")
	b.WriteString("Your output will be reviewed and validated by licensed healthcare providers.\n")
	b.WriteString("This is a clinical decision support tool, not a diagnostic system.\n")
	b.WriteString("Prioritize patient safety: when in doubt, recommend higher acuity.\n\n")

	fmt.Fprintf(&b, "PATIENT INFORMATION:\nAge: %d\nSex: %s\n\n", patient.Age, patient.Sex)
	fmt.Fprintf(&b, "CHIEF COMPLAINT:\n%s\n\n", transcript.ChiefComplaint)
	fmt.Fprintf(&b, "SYMPTOM DESCRIPTION:\n%s\n\n", transcript.SymptomDescription)
	fmt.Fprintf(&b, "DURATION: %s\nSEVERITY: %s\n\n", transcript.Duration, transcript.Severity)
	fmt.Fprintf(&b, "ASSOCIATED SYMPTOMS: %s\n", listOrNone(transcript.AssociatedSymptoms))
	fmt.Fprintf(&b, "MEDICAL HISTORY: %s\n", listOrNone(transcript.MedicalHistory))
	fmt.Fprintf(&b, "CURRENT MEDICATIONS: %s\n", listOrNone(transcript.Medications))
	fmt.Fprintf(&b, "ALLERGIES: %s\n\n", listOrNone(transcript.Allergies))

	b.WriteString(`Respond with a single JSON object, no surrounding text, in exactly this shape:
{
  "soap_note": {
    "subjective": "patient's description of symptoms in clinical terms",
    "objective": "observable findings from patient self-report; no physical exam was performed",
    "assessment": "clinical impression with most likely diagnosis and important differentials",
    "plan": "recommended next steps, provider type, timeframe, immediate actions"
  },
  "reasoning": {
    "differential_diagnosis": ["3-5 possible diagnoses in order of likelihood, each with brief rationale"],
    "red_flags_assessed": ["dangerous symptoms you evaluated for, with your assessment of each"],
    "clinical_reasoning": "2-3 paragraphs explaining your thought process",
    "confidence_level": 0.0,
    "supporting_evidence": ["key clinical features supporting your assessment"],
    "ruled_out_conditions": ["serious conditions considered and ruled out, with reasoning"]
  },
  "preliminary_urgency": "ROUTINE or URGENT or EMERGENCY",
  "suggested_providers": ["one or more of: GP, NP, RN, PSW, SPECIALIST, URGENT_CARE, ED"]
}
`)
	return b.String()
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "None reported"
	}
	return strings.Join(items, ", ")
}
