package converter

// Колонки артефакта кэша эмбеддингов в порядке записи.
const (
	ColumnName              = "name"
	ColumnDescription       = "description"
	ColumnAbvr              = "abvr"
	ColumnCombinedEmbedding = "combined_embedding"
	ColumnNameEmbedding     = "name_embedding"
	ColumnDescEmbedding     = "desc_embedding"
	ColumnCombinedText      = "combined_text"
)

var CacheColumns = []string{
	ColumnName,
	ColumnDescription,
	ColumnAbvr,
	ColumnCombinedEmbedding,
	ColumnNameEmbedding,
	ColumnDescEmbedding,
	ColumnCombinedText,
}

// SegmentEmbeddingRow хранит векторы десятичными числами через запятую.
type SegmentEmbeddingRow struct {
	Name              string
	Description       string
	Abvr              string
	CombinedEmbedding string
	NameEmbedding     string
	DescEmbedding     string
	CombinedText      string
}

func (r SegmentEmbeddingRow) Record() []string {
	return []string{
		r.Name,
		r.Description,
		r.Abvr,
		r.CombinedEmbedding,
		r.NameEmbedding,
		r.DescEmbedding,
		r.CombinedText,
	}
}
