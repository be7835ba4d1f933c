package domain

import "strings"

const (
	// nameAsId селектора без географических ограничений
	CatchAllKey = "All"
	// OverallKey — ключ агрегированного по всем локациям прогноза.
	OverallKey = "Overall"
)

// Location — разрешённая локация. Name имеет вид "<displayName>,<countryCode>,<type>".
type Location struct {
	ID   int64
	Name string
}

func NewLocation(id int64, displayName, countryCode, locationType string) *Location {
	return &Location{
		ID:   id,
		Name: displayName + "," + countryCode + "," + locationType,
	}
}

// DisplayName возвращает имя локации без кода страны и типа.
func (l Location) DisplayName() string {
	name, _, _ := strings.Cut(l.Name, ",")
	return name
}

// LocationSelector — набор включённых и исключённых локаций с ключом nameAsId.
type LocationSelector struct {
	Included []Location
	Excluded []Location
	NameAsID string
}

// IsCatchAll сообщает, что селектор не ограничивает географию.
func (s LocationSelector) IsCatchAll() bool {
	return len(s.Included) == 0 && len(s.Excluded) == 0
}

// IsSingle сообщает, что селектор состоит из одной включённой локации без исключений.
func (s LocationSelector) IsSingle() bool {
	return len(s.Included) == 1 && len(s.Excluded) == 0
}

// LocationRequest задаёт локации свободным текстом.
type LocationRequest struct {
	Included []string
	Excluded []string
	NameAsID string
}

// LocationGroup — именованная группа локаций из внешнего реестра.
type LocationGroup struct {
	Name     string
	Included []Location
	Excluded []Location
}

// Selector возвращает селектор группы с nameAsId, равным имени группы.
func (g LocationGroup) Selector() LocationSelector {
	return LocationSelector{
		Included: g.Included,
		Excluded: g.Excluded,
		NameAsID: g.Name,
	}
}

// UnresolvedLocation хранит фразу или целый селектор, которые не удалось разрешить.
// Заполнено ровно одно из полей.
type UnresolvedLocation struct {
	Phrase   string
	Selector *LocationRequest
}
