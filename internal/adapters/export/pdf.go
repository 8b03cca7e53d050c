package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

// NoAdviceMessage fills the advice section when nothing was generated.
const NoAdviceMessage = "No AI suggestions were generated during this journey."

var categoryTitles = map[domain.Category]string{
	domain.CategorySafety:       "Safety",
	domain.CategoryConfidence:   "Confidence",
	domain.CategoryAnticipation: "Anticipation",
	domain.CategoryOpenness:     "Openness",
	domain.CategoryDeserving:    "Deserving",
	domain.CategoryBelief:       "Belief",
	domain.CategoryAppreciation: "Appreciation",
}

// PDFExporter renders a journey summary as an A4 document.
type PDFExporter struct {
	compress bool
	now      func() time.Time
}

type Option func(*PDFExporter)

// WithCompression toggles stream compression. Tests turn it off to read
// the text back.
func WithCompression(on bool) Option {
	return func(e *PDFExporter) { e.compress = on }
}

func WithClock(now func() time.Time) Option {
	return func(e *PDFExporter) { e.now = now }
}

func NewPDFExporter(opts ...Option) *PDFExporter {
	e := &PDFExporter{compress: true, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *PDFExporter) ContentType() string {
	return "application/pdf"
}

func (e *PDFExporter) Export(ctx context.Context, w io.Writer, j *domain.Journey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(e.compress)
	pdf.SetTitle("Goal journey", true)
	pdf.SetCreationDate(e.now())
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	r := &renderer{pdf: pdf, tr: tr}

	r.title("Your Goal Journey")

	r.heading("Goal")
	r.paragraph(orDash(j.Goal))

	r.heading("Target date")
	if j.TargetDate != nil {
		r.paragraph(fmt.Sprintf("%s (%d days away)", j.TargetDate.Format("January 2, 2006"), j.DaysUntilTarget))
	} else {
		r.paragraph("-")
	}

	r.heading("Where you are")
	r.paragraph(fmt.Sprintf("You placed yourself at letter %s of A to Z, where Z means the goal is reached.",
		domain.Letter(j.CurrentPosition)))

	r.heading("Sensations")
	if s := j.Sensations(); len(s) > 0 {
		r.paragraph(strings.Join(s, "  ·  "))
	} else {
		r.paragraph("None selected.")
	}

	r.heading("Alignment")
	r.scores(j.LikertScores)

	r.heading("Suggestions")
	advised := false
	for _, c := range domain.Categories {
		text := strings.TrimSpace(j.LatestAIAdvice[c])
		if text == "" {
			continue
		}
		advised = true
		r.label(categoryTitles[c])
		r.paragraph(text)
	}
	if !advised {
		r.paragraph(NoAdviceMessage)
	}

	if a := j.Adjustment; a.AIResponse != "" || a.Scale != domain.MaxScale {
		r.heading("Belief adjustment")
		r.paragraph(fmt.Sprintf("Scope kept: %d%%. New position: letter %s of %s.",
			a.Scale, domain.Letter(a.LetterPosition), domain.Letter(domain.MaxLetterPosition(a.Scale))))
		if a.AIResponse != "" {
			r.paragraph(a.AIResponse)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

type renderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (r *renderer) title(s string) {
	r.pdf.SetFont("Helvetica", "B", 20)
	r.pdf.CellFormat(0, 12, r.tr(s), "", 1, "C", false, 0, "")
	r.pdf.Ln(4)
}

func (r *renderer) heading(s string) {
	r.pdf.Ln(3)
	r.pdf.SetFont("Helvetica", "B", 13)
	r.pdf.CellFormat(0, 8, r.tr(s), "B", 1, "L", false, 0, "")
	r.pdf.Ln(2)
}

func (r *renderer) label(s string) {
	r.pdf.SetFont("Helvetica", "B", 11)
	r.pdf.CellFormat(0, 6, r.tr(s), "", 1, "L", false, 0, "")
}

func (r *renderer) paragraph(s string) {
	r.pdf.SetFont("Helvetica", "", 11)
	r.pdf.MultiCell(0, 6, r.tr(s), "", "L", false)
	r.pdf.Ln(1)
}

// scores lays the categories out in two columns, left column first.
func (r *renderer) scores(scores map[domain.Category]int) {
	r.pdf.SetFont("Helvetica", "", 11)
	w, _ := r.pdf.GetPageSize()
	left, _, right, _ := r.pdf.GetMargins()
	col := (w - left - right) / 2

	half := (len(domain.Categories) + 1) / 2
	for row := 0; row < half; row++ {
		for c := 0; c < 2; c++ {
			i := row + c*half
			if i >= len(domain.Categories) {
				continue
			}
			cat := domain.Categories[i]
			r.pdf.CellFormat(col, 7, r.tr(fmt.Sprintf("%s: %d / %d", categoryTitles[cat], scores[cat], domain.MaxLikertScore)),
				"", 0, "L", false, 0, "")
		}
		r.pdf.Ln(7)
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
