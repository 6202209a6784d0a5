package model

import (
	"fmt"
	"regexp"
	"strings"
)

type DistillType string

const (
	DistillExecutive   DistillType = "Executive"
	DistillKeywords    DistillType = "Keywords"
	DistillMindmap     DistillType = "Mindmap"
	DistillSWOT        DistillType = "SWOT"
	DistillPPT         DistillType = "PPT"
	DistillInfographic DistillType = "Infographic"
	DistillPoster      DistillType = "Poster"
)

const UntitledAnalysis = "Untitled Analysis"

func (t DistillType) Valid() bool {
	switch t {
	case DistillExecutive, DistillKeywords, DistillMindmap, DistillSWOT,
		DistillPPT, DistillInfographic, DistillPoster:
		return true
	}
	return false
}

// VisualKey is the visualData cache key: one image per slide for decks, one per mode otherwise.
func VisualKey(t DistillType, slide int) string {
	if t == DistillPPT {
		return fmt.Sprintf("PPT_%d", slide)
	}
	return string(t)
}

// ImageAdjustments is presentation state layered onto a generated image.
type ImageAdjustments struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturate   float64 `json:"saturate"`
	Grayscale  float64 `json:"grayscale"`
	Sepia      float64 `json:"sepia"`
	Blur       float64 `json:"blur"`
}

func DefaultAdjustments() ImageAdjustments {
	return ImageAdjustments{Brightness: 1, Contrast: 1, Saturate: 1}
}

// AdjustmentsPatch carries a partial update; nil fields keep their current value.
type AdjustmentsPatch struct {
	Brightness *float64 `json:"brightness,omitempty"`
	Contrast   *float64 `json:"contrast,omitempty"`
	Saturate   *float64 `json:"saturate,omitempty"`
	Grayscale  *float64 `json:"grayscale,omitempty"`
	Sepia      *float64 `json:"sepia,omitempty"`
	Blur       *float64 `json:"blur,omitempty"`
}

func (a ImageAdjustments) Merge(p AdjustmentsPatch) ImageAdjustments {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&a.Brightness, p.Brightness)
	set(&a.Contrast, p.Contrast)
	set(&a.Saturate, p.Saturate)
	set(&a.Grayscale, p.Grayscale)
	set(&a.Sepia, p.Sepia)
	set(&a.Blur, p.Blur)
	return a
}

// CSSFilter renders the adjustments as a CSS filter value.
func (a ImageAdjustments) CSSFilter() string {
	return fmt.Sprintf("brightness(%g) contrast(%g) saturate(%g) grayscale(%g) sepia(%g) blur(%gpx)",
		a.Brightness, a.Contrast, a.Saturate, a.Grayscale, a.Sepia, a.Blur)
}

type DistillConfig struct {
	LogoURL    string `json:"logoUrl,omitempty"`
	ThemeColor string `json:"themeColor,omitempty"`
	ThemeName  string `json:"themeName,omitempty"`
}

type DistillSession struct {
	ID                string                      `json:"id"`
	Title             string                      `json:"title"`
	Documents         []ReviewDocument            `json:"documents"`
	Result            string                      `json:"result"`
	Type              DistillType                 `json:"type"`
	VisualData        map[string]string           `json:"visualData"`
	VisualAdjustments map[string]ImageAdjustments `json:"visualAdjustments,omitempty"`
	Timestamp         int64                       `json:"timestamp"`
	Config            *DistillConfig              `json:"config,omitempty"`
}

func (s DistillSession) Clone() DistillSession {
	out := s
	out.Documents = CloneDocuments(s.Documents)
	out.VisualData = make(map[string]string, len(s.VisualData))
	for k, v := range s.VisualData {
		out.VisualData[k] = v
	}
	if s.VisualAdjustments != nil {
		out.VisualAdjustments = make(map[string]ImageAdjustments, len(s.VisualAdjustments))
		for k, v := range s.VisualAdjustments {
			out.VisualAdjustments[k] = v
		}
	}
	if s.Config != nil {
		cfg := *s.Config
		out.Config = &cfg
	}
	return out
}

// Adjustments returns the stored adjustments for key, or the defaults.
func (s DistillSession) Adjustments(key string) ImageAdjustments {
	if adj, ok := s.VisualAdjustments[key]; ok {
		return adj
	}
	return DefaultAdjustments()
}

var (
	slideMarker  = regexp.MustCompile(`(?i)\[Slide \d+:`)
	pillarMarker = regexp.MustCompile(`(?i)\[Pillar \d+:`)
)

const maxPillars = 4

type Slide struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Pillar struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SlideChunks splits a deck outline on its slide markers, dropping blank chunks.
func SlideChunks(result string) []string {
	var out []string
	for _, chunk := range slideMarker.Split(result, -1) {
		if strings.TrimSpace(chunk) != "" {
			out = append(out, chunk)
		}
	}
	return out
}

// ParseSlides turns "[Slide N: Title] body" outlines into slides.
func ParseSlides(result string) []Slide {
	chunks := SlideChunks(result)
	slides := make([]Slide, 0, len(chunks))
	for _, chunk := range chunks {
		lines := strings.Split(chunk, "\n")
		slides = append(slides, Slide{
			Title: strings.TrimSpace(strings.Replace(lines[0], "]", "", 1)),
			Body:  strings.Join(lines[1:], "\n"),
		})
	}
	return slides
}

// ParsePillars turns "[Pillar N: Title] text" outlines into at most four pillars.
func ParsePillars(result string) []Pillar {
	var pillars []Pillar
	for _, chunk := range pillarMarker.Split(result, -1) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		parts := strings.Split(chunk, "]")
		if len(parts) < 2 {
			continue
		}
		pillars = append(pillars, Pillar{
			Title:   strings.TrimSpace(parts[0]),
			Content: strings.TrimSpace(strings.Join(parts[1:], "]")),
		})
	}
	if len(pillars) > maxPillars {
		pillars = pillars[:maxPillars]
	}
	return pillars
}
