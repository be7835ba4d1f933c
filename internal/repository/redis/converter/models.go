package converter

// LocationRedisModel хранит результат поиска локации по фразе.
type LocationRedisModel struct {
	Phrase string `json:"phrase"`
	ID     int64  `json:"id"`
	Name   string `json:"name"`
}
