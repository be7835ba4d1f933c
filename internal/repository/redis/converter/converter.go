package converter

import (
	"strings"

	"github.com/mediaplan/forecast-service/internal/domain"
)

func ToRedisModel(phrase string, entity *domain.Location) *LocationRedisModel {
	return &LocationRedisModel{
		Phrase: NormalizePhrase(phrase),
		ID:     entity.ID,
		Name:   entity.Name,
	}
}

func ToEntity(model *LocationRedisModel) *domain.Location {
	return &domain.Location{
		ID:   model.ID,
		Name: model.Name,
	}
}

// NormalizePhrase приводит фразу к виду, в котором она входит в ключ кэша.
// Регистр сохраняется: поиск во внешнем сервисе сравнивает имена точно.
func NormalizePhrase(phrase string) string {
	return strings.TrimSpace(phrase)
}
