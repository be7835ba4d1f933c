package converter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
)

// ToRow преобразует эмбеддинги сегмента в строку артефакта.
func ToRow(entry *domain.SegmentEmbedding) SegmentEmbeddingRow {
	return SegmentEmbeddingRow{
		Name:              entry.Segment.Name,
		Description:       entry.Segment.Description,
		Abvr:              entry.Segment.Abvr,
		CombinedEmbedding: FormatVector(entry.Combined),
		NameEmbedding:     FormatVector(entry.Name),
		DescEmbedding:     FormatVector(entry.Description),
		CombinedText:      entry.CombinedText,
	}
}

// ToEntity разбирает строку артефакта. Ошибка разбора вектора возвращается как есть.
func ToEntity(row *SegmentEmbeddingRow) (*domain.SegmentEmbedding, error) {
	combined, err := ParseVector(row.CombinedEmbedding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ColumnCombinedEmbedding, err)
	}
	name, err := ParseVector(row.NameEmbedding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ColumnNameEmbedding, err)
	}
	desc, err := ParseVector(row.DescEmbedding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ColumnDescEmbedding, err)
	}

	return domain.NewSegmentEmbedding(
		*domain.NewAudienceSegment(row.Abvr, row.Name, row.Description),
		row.CombinedText,
		combined,
		name,
		desc,
	), nil
}

func FormatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func ParseVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, e.ErrEmptyVectors
	}

	parts := strings.Split(s, ",")
	v := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		v[i] = f
	}
	return v, nil
}

// EncodeCSV пишет заголовок и по строке на каждый сегмент.
func EncodeCSV(w io.Writer, entries []domain.SegmentEmbedding) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CacheColumns); err != nil {
		return err
	}

	for i := range entries {
		if err := cw.Write(ToRow(&entries[i]).Record()); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// DecodeCSV читает артефакт. Порядок колонок берётся из заголовка.
// Отсутствующая колонка или неразборчивая строка дают e.ErrCacheCorrupted.
func DecodeCSV(r io.Reader) ([]domain.SegmentEmbedding, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Join(e.ErrCacheCorrupted, err)
	}

	index, missing := columnIndex(header)
	if len(missing) > 0 {
		return nil, e.Wrap(fmt.Sprintf("missing columns %v", missing), e.ErrCacheCorrupted)
	}

	result := make([]domain.SegmentEmbedding, 0)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Join(e.ErrCacheCorrupted, err)
		}

		row := SegmentEmbeddingRow{
			Name:              record[index[ColumnName]],
			Description:       record[index[ColumnDescription]],
			Abvr:              record[index[ColumnAbvr]],
			CombinedEmbedding: record[index[ColumnCombinedEmbedding]],
			NameEmbedding:     record[index[ColumnNameEmbedding]],
			DescEmbedding:     record[index[ColumnDescEmbedding]],
			CombinedText:      record[index[ColumnCombinedText]],
		}

		entry, err := ToEntity(&row)
		if err != nil {
			return nil, e.Wrap(fmt.Sprintf("line %d: %v", line, err), e.ErrCacheCorrupted)
		}
		result = append(result, *entry)
	}

	return result, nil
}

// CheckCSV проверяет наличие строк и всех колонок, не разбирая векторы.
func CheckCSV(r io.Reader) (bool, string) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return false, "Cache file is empty"
	}
	if err != nil {
		return false, fmt.Sprintf("Error reading cache: %v", err)
	}

	rows := 0
	for {
		_, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return false, fmt.Sprintf("Error reading cache: %v", err)
		}
		rows++
	}

	if rows == 0 {
		return false, "Cache file is empty"
	}

	if _, missing := columnIndex(header); len(missing) > 0 {
		return false, fmt.Sprintf("Missing columns: %v", missing)
	}

	return true, fmt.Sprintf("Cache is valid with %d entries", rows)
}

func columnIndex(header []string) (map[string]int, []string) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}

	missing := make([]string, 0)
	for _, col := range CacheColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}

	return index, missing
}
