package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// maxPopupElements ограничивает размер промпта для LLM.
const maxPopupElements = 80

type PopupDetector interface {
	DetectPopup(ctx context.Context, pageSnapshot *PageSnapshot) (*PopupInfo, error)
}

type PopupInfo struct {
	HasPopup         bool   `json:"has_popup"`
	CloseSelector    string `json:"close_selector"`
	PopupDescription string `json:"popup_description"`
	Reasoning        string `json:"reasoning"`
}

type LLMPopupDetector struct {
	llmClient PopupAnalyzer
}

type PopupAnalyzer interface {
	AnalyzePopup(ctx context.Context, elements string) (*PopupInfo, error)
}

func NewLLMPopupDetector(llmClient PopupAnalyzer) *LLMPopupDetector {
	return &LLMPopupDetector{
		llmClient: llmClient,
	}
}

func (d *LLMPopupDetector) DetectPopup(ctx context.Context, pageSnapshot *PageSnapshot) (*PopupInfo, error) {
	elements := popupCandidates(pageSnapshot)
	if len(elements) == 0 {
		return &PopupInfo{HasPopup: false}, nil
	}

	elementsJSON, err := json.Marshal(elements)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal elements: %w", err)
	}

	return d.llmClient.AnalyzePopup(ctx, string(elementsJSON))
}

// popupCandidates оставляет интерактивные элементы в видимой области,
// самые приоритетные первыми.
func popupCandidates(snapshot *PageSnapshot) []ElementInfo {
	if snapshot == nil {
		return nil
	}

	out := make([]ElementInfo, 0, len(snapshot.Elements))
	for _, el := range snapshot.Elements {
		if el.Interactive && el.InViewport {
			out = append(out, el)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	if len(out) > maxPopupElements {
		out = out[:maxPopupElements]
	}
	return out
}
