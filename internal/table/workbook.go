package table

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"platedesign/internal/blob"
)

// Sink receives named sheets. Adding a sheet whose name is already present
// in the same sink fails.
type Sink interface {
	AddSheet(name string, t *Table) error
}

// Sheet is one named table of a workbook.
type Sheet struct {
	Name  string
	Table *Table
}

// Workbook collects sheets in insertion order and persists them as CSV
// objects under a common key prefix.
type Workbook struct {
	name   string
	sheets []Sheet
}

var _ Sink = (*Workbook)(nil)

// NewWorkbook returns an empty workbook. name becomes the key prefix on Save
// and may contain '/' separated directories, e.g. "replicate_002/samples".
func NewWorkbook(name string) *Workbook {
	return &Workbook{name: strings.Trim(name, "/")}
}

// Name returns the workbook key prefix.
func (w *Workbook) Name() string { return w.name }

// AddSheet stores a copy of t under name.
func (w *Workbook) AddSheet(name string, t *Table) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("workbook %s: sheet name required", w.name)
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("workbook %s: invalid sheet name %q", w.name, name)
	}
	if _, exists := w.Sheet(name); exists {
		return fmt.Errorf("workbook %s: sheet %q already exists", w.name, name)
	}
	if t == nil {
		t = New()
	}
	w.sheets = append(w.sheets, Sheet{Name: name, Table: t.Clone()})
	return nil
}

// Sheet returns the named sheet.
func (w *Workbook) Sheet(name string) (*Table, bool) {
	for _, s := range w.sheets {
		if s.Name == name {
			return s.Table, true
		}
	}
	return nil, false
}

// Sheets returns the sheets in insertion order.
func (w *Workbook) Sheets() []Sheet {
	out := make([]Sheet, len(w.sheets))
	copy(out, w.sheets)
	return out
}

// Save writes every sheet to store. Sheets upload concurrently; the first
// failure cancels the rest. Returned infos follow sheet order.
func (w *Workbook) Save(ctx context.Context, store blob.Store, metadata map[string]string) ([]blob.Info, error) {
	infos := make([]blob.Info, len(w.sheets))
	g, gctx := errgroup.WithContext(ctx)
	for i, sheet := range w.sheets {
		g.Go(func() error {
			var buf bytes.Buffer
			if err := WriteCSV(&buf, sheet.Table); err != nil {
				return fmt.Errorf("workbook %s: encode sheet %q: %w", w.name, sheet.Name, err)
			}
			md := map[string]string{
				"workbook": w.name,
				"sheet":    sheet.Name,
				"rows":     strconv.Itoa(sheet.Table.Len()),
			}
			for k, v := range metadata {
				md[k] = v
			}
			info, err := store.Put(gctx, SheetKey(w.name, i, sheet.Name), bytes.NewReader(buf.Bytes()), blob.PutOptions{ContentType: "text/csv", Metadata: md})
			if err != nil {
				return fmt.Errorf("workbook %s: save sheet %q: %w", w.name, sheet.Name, err)
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infos, nil
}

// SheetKey returns the object key of the index-th sheet of a workbook.
func SheetKey(workbook string, index int, sheet string) string {
	return path.Join(workbook, fmt.Sprintf("%03d-%s.csv", index+1, sheet))
}

// OpenWorkbook loads a workbook previously written by Save.
func OpenWorkbook(ctx context.Context, store blob.Store, name string) (*Workbook, error) {
	name = strings.Trim(name, "/")
	prefix := name + "/"
	if name == "" {
		prefix = ""
	}
	infos, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list workbook %s: %w", name, err)
	}
	var keys []string
	for _, info := range infos {
		rest := strings.TrimPrefix(info.Key, prefix)
		if strings.Contains(rest, "/") || !strings.HasSuffix(rest, ".csv") {
			continue
		}
		keys = append(keys, info.Key)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("workbook %s: no sheets found: %w", name, blob.ErrNotFound)
	}
	sort.Strings(keys)

	wb := NewWorkbook(name)
	for _, key := range keys {
		sheetName, ok := sheetNameFromKey(key)
		if !ok {
			continue
		}
		_, rc, err := store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("open sheet %s: %w", key, err)
		}
		t, err := ReadCSV(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("decode sheet %s: %w", key, err)
		}
		if err := wb.AddSheet(sheetName, t); err != nil {
			return nil, err
		}
	}
	return wb, nil
}

func sheetNameFromKey(key string) (string, bool) {
	base := strings.TrimSuffix(path.Base(key), ".csv")
	idx, name, ok := strings.Cut(base, "-")
	if !ok || name == "" {
		return "", false
	}
	if _, err := strconv.Atoi(idx); err != nil {
		return "", false
	}
	return name, true
}
