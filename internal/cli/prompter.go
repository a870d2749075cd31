package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/dompet/internal/model"
)

// Prompter asks for transaction fields and confirmations on a terminal.
type Prompter struct {
	writer io.Writer
	reader *LineReader
	now    func() time.Time
}

// NewPrompter creates a prompter over the given reader and writer.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		reader: NewLineReader(reader),
		writer: writer,
		now:    time.Now,
	}
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(question+" [y/N]")); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}
	answer, err := p.reader.ReadLine(ctx)
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// PromptDraft walks through every field of a new transaction.
func (p *Prompter) PromptDraft(ctx context.Context) (model.Draft, error) {
	var draft model.Draft
	var err error

	if draft.Type, err = p.promptType(ctx); err != nil {
		return model.Draft{}, err
	}
	if draft.Category, err = p.promptCategory(ctx, draft.Type); err != nil {
		return model.Draft{}, err
	}
	if draft.Amount, err = p.promptAmount(ctx); err != nil {
		return model.Draft{}, err
	}
	if draft.Date, err = p.promptDate(ctx); err != nil {
		return model.Draft{}, err
	}
	if _, err := fmt.Fprint(p.writer, FormatPrompt("Notes (optional)")); err != nil {
		return model.Draft{}, fmt.Errorf("failed to write notes prompt: %w", err)
	}
	if draft.Notes, err = p.reader.ReadLine(ctx); err != nil {
		return model.Draft{}, err
	}
	return draft, nil
}

func (p *Prompter) promptType(ctx context.Context) (model.TransactionType, error) {
	types := model.Types()
	for i, t := range types {
		if _, err := fmt.Fprintf(p.writer, "  [%d] %s\n", i+1, TypeStyle(t).Render(string(t))); err != nil {
			return "", fmt.Errorf("failed to write type option: %w", err)
		}
	}
	idx, err := p.promptIndex(ctx, "Type", len(types), func(input string) (int, bool) {
		t, err := model.ParseType(input)
		if err != nil {
			return 0, false
		}
		for i, candidate := range types {
			if candidate == t {
				return i, true
			}
		}
		return 0, false
	})
	if err != nil {
		return "", err
	}
	return types[idx], nil
}

func (p *Prompter) promptCategory(ctx context.Context, t model.TransactionType) (string, error) {
	categories := model.Categories(t)
	for i, c := range categories {
		if _, err := fmt.Fprintf(p.writer, "  [%d] %s\n", i+1, c); err != nil {
			return "", fmt.Errorf("failed to write category option: %w", err)
		}
	}
	idx, err := p.promptIndex(ctx, "Category", len(categories), func(input string) (int, bool) {
		for i, c := range categories {
			if strings.EqualFold(c, input) {
				return i, true
			}
		}
		return 0, false
	})
	if err != nil {
		return "", err
	}
	return categories[idx], nil
}

// promptIndex accepts a 1-based option number or whatever byName resolves.
func (p *Prompter) promptIndex(ctx context.Context, prompt string, n int, byName func(string) (int, bool)) (int, error) {
	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
			return 0, fmt.Errorf("failed to write prompt: %w", err)
		}
		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			return 0, err
		}
		if num, err := strconv.Atoi(input); err == nil && num >= 1 && num <= n {
			return num - 1, nil
		}
		if idx, ok := byName(input); ok {
			return idx, nil
		}
		p.complain("Invalid choice. Please try again.")
	}
}

func (p *Prompter) promptAmount(ctx context.Context) (int64, error) {
	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt("Amount (Rp)")); err != nil {
			return 0, fmt.Errorf("failed to write amount prompt: %w", err)
		}
		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			return 0, err
		}
		amount, err := ParseAmount(input)
		if err == nil {
			return amount, nil
		}
		p.complain(err.Error())
	}
}

func (p *Prompter) promptDate(ctx context.Context) (time.Time, error) {
	today := model.FormatDate(p.now())
	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt(fmt.Sprintf("Date [%s]", today))); err != nil {
			return time.Time{}, fmt.Errorf("failed to write date prompt: %w", err)
		}
		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			return time.Time{}, err
		}
		if input == "" {
			input = today
		}
		date, err := model.ParseDate(input)
		if err == nil {
			return date, nil
		}
		p.complain("Dates look like 2024-01-15.")
	}
}

func (p *Prompter) complain(msg string) {
	if _, err := fmt.Fprintln(p.writer, FormatError(msg)); err != nil {
		slog.Warn("Failed to write error message", "error", err)
	}
}

// ParseAmount reads a positive whole rupiah amount. An optional "Rp" prefix
// and dot or comma thousands grouping are accepted, so "Rp 8.500.000" and
// "8500000" are equal.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[:2], "rp") {
		s = strings.TrimSpace(s[2:])
	}
	if s == "" {
		return 0, fmt.Errorf("amount is required")
	}

	groups := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ',' })
	if len(groups) > 1 || strings.ContainsAny(s, ".,") {
		if len(groups) < 2 || len(groups[0]) > 3 || strings.HasSuffix(s, ".") || strings.HasSuffix(s, ",") {
			return 0, fmt.Errorf("amount %q is not a whole number of rupiah", s)
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return 0, fmt.Errorf("amount %q is not a whole number of rupiah", s)
			}
		}
	}

	amount, err := strconv.ParseInt(strings.Join(groups, ""), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not a whole number of rupiah", s)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be greater than zero")
	}
	return amount, nil
}

// NewProgress builds the progress bar shown during bulk imports.
func NewProgress(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}
