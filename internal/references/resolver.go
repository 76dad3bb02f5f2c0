package references

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/voynichlabs/voynich-backend/internal/manuscript"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
)

// ResolvedReference is a reference joined with the manuscript data the AI
// prompt needs. Symbol references carry their owning page's folio number.
type ResolvedReference struct {
	Type        RefType `json:"type"`
	ID          int     `json:"id"`
	FolioNumber string  `json:"folio_number"`
	Section     string  `json:"section,omitempty"`
	PageID      int     `json:"page_id,omitempty"`
	Category    string  `json:"category,omitempty"`
	X           int     `json:"x,omitempty"`
	Y           int     `json:"y,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
}

// Resolver looks up references against the manuscript tables.
type Resolver interface {
	Resolve(ctx context.Context, refs []Reference) ([]ResolvedReference, error)
}

type resolver struct {
	manuscripts manuscript.Repository
}

// NewResolver wires a resolver over the manuscript repository.
func NewResolver(manuscripts manuscript.Repository) (Resolver, error) {
	if manuscripts == nil {
		return nil, fmt.Errorf("manuscript repository required")
	}
	return &resolver{manuscripts: manuscripts}, nil
}

// Resolve looks up each reference in order. References whose target no
// longer exists are dropped without error so a stale token degrades to an
// omitted context line rather than a failed request.
func (r *resolver) Resolve(ctx context.Context, refs []Reference) ([]ResolvedReference, error) {
	resolved := make([]ResolvedReference, 0, len(refs))
	for _, ref := range refs {
		switch ref.Type {
		case RefTypePage:
			page, err := r.manuscripts.GetPage(ctx, ref.ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve page reference")
			}
			entry := ResolvedReference{
				Type:        RefTypePage,
				ID:          ref.ID,
				FolioNumber: page.FolioNumber,
			}
			if page.Section != nil {
				entry.Section = *page.Section
			}
			resolved = append(resolved, entry)

		case RefTypeSymbol:
			symbol, err := r.manuscripts.GetSymbol(ctx, ref.ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve symbol reference")
			}
			entry := ResolvedReference{
				Type:   RefTypeSymbol,
				ID:     ref.ID,
				PageID: symbol.PageID,
				X:      symbol.X,
				Y:      symbol.Y,
				Width:  symbol.Width,
				Height: symbol.Height,
			}
			if symbol.Category != nil {
				entry.Category = *symbol.Category
			}
			if symbol.Page != nil {
				entry.FolioNumber = symbol.Page.FolioNumber
			}
			resolved = append(resolved, entry)
		}
	}
	return resolved, nil
}

// RenderContext produces the human-readable context block spliced into the
// system prompt. Rendering is pure: grouped by type, original order kept
// within each group. An empty input renders an empty string.
func RenderContext(resolved []ResolvedReference) string {
	if len(resolved) == 0 {
		return ""
	}

	var pages, symbols []ResolvedReference
	for _, ref := range resolved {
		if ref.Type == RefTypePage {
			pages = append(pages, ref)
		} else {
			symbols = append(symbols, ref)
		}
	}

	var b strings.Builder
	b.WriteString("Referenced manuscript material:\n")
	if len(pages) > 0 {
		b.WriteString("\nPages:\n")
		for _, page := range pages {
			b.WriteString(fmt.Sprintf("- Page %d, folio %s", page.ID, page.FolioNumber))
			if page.Section != "" {
				b.WriteString(fmt.Sprintf(" (%s section)", page.Section))
			}
			b.WriteString("\n")
		}
	}
	if len(symbols) > 0 {
		b.WriteString("\nSymbols:\n")
		for _, symbol := range symbols {
			b.WriteString(fmt.Sprintf("- Symbol %d on folio %s", symbol.ID, symbol.FolioNumber))
			if symbol.Category != "" {
				b.WriteString(fmt.Sprintf(", category %s", symbol.Category))
			}
			b.WriteString(fmt.Sprintf(", region (%d,%d) %dx%d\n", symbol.X, symbol.Y, symbol.Width, symbol.Height))
		}
	}
	return b.String()
}
