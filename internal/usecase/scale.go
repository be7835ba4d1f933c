package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/shopspring/decimal"
)

const (
	GenderAll    = "All"
	GenderMale   = "Male"
	GenderFemale = "Female"

	AgeAll = "All"

	// верхняя граница диапазонов вида "55+"
	maxAge = 100
)

// Доли аудитории по полу.
var genderFactors = map[string]float64{
	strings.ToLower(GenderAll):    1.0,
	strings.ToLower(GenderMale):   0.7,
	strings.ToLower(GenderFemale): 0.3,
}

type ageBucket struct {
	label  string
	min    int
	max    int
	weight float64
}

// Канонические возрастные бакеты и их доли аудитории.
var ageBuckets = []ageBucket{
	{label: "18-24", min: 18, max: 24, weight: 0.15},
	{label: "25-34", min: 25, max: 34, weight: 0.35},
	{label: "35-44", min: 35, max: 44, weight: 0.30},
	{label: "45-54", min: 45, max: 54, weight: 0.10},
	{label: "55+", min: 55, max: maxAge, weight: 0.10},
}

var (
	ageRangeRe = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)
	ageOpenRe  = regexp.MustCompile(`^(\d+)\s*\+$`)
)

// GenderFactor возвращает долю пола без учёта регистра. Пустое значение означает All.
func GenderFactor(gender string) (float64, error) {
	g := strings.ToLower(strings.TrimSpace(gender))
	if g == "" {
		return 1.0, nil
	}

	factor, ok := genderFactors[g]
	if !ok {
		return 0, e.Wrap(gender, e.ErrInvalidGender)
	}

	return factor, nil
}

// AgeFactor возвращает долю возрастной группы.
// Канонические бакеты берутся как есть; произвольный диапазон "X-Y" или "X+" считается
// как сумма weight × overlapYears / bucketYears по пересекающимся бакетам с округлением до 3 знаков.
// Список через запятую суммируется с ограничением 1. Неразборчивое значение даёт 0.
func AgeFactor(age string) float64 {
	age = strings.TrimSpace(age)
	if age == "" || strings.EqualFold(age, AgeAll) {
		return 1.0
	}

	if strings.Contains(age, ",") {
		var sum float64
		for _, part := range strings.Split(age, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			sum += AgeFactor(part)
		}
		return round(min(sum, 1.0), 3)
	}

	for _, b := range ageBuckets {
		if b.label == age {
			return b.weight
		}
	}

	from, to, ok := parseAgeRange(age)
	if !ok {
		return 0
	}

	var factor float64
	for _, b := range ageBuckets {
		lo := max(from, b.min)
		hi := min(to, b.max)
		if hi < lo {
			continue
		}
		overlap := float64(hi - lo + 1)
		years := float64(b.max - b.min + 1)
		factor += b.weight * overlap / years
	}

	return round(factor, 3)
}

// DemographicScale перемножает доли пола и возраста.
func DemographicScale(gender, age string) (float64, error) {
	g, err := GenderFactor(gender)
	if err != nil {
		return 0, err
	}

	return g * AgeFactor(age), nil
}

// ScaleMetrics масштабирует охват и ограничивает показы тремя показами на пользователя.
func ScaleMetrics(user, impr, scale float64) (float64, float64) {
	scaledUser := user * scale
	scaledImpr := min(impr*scale, 3*scaledUser)
	return scaledUser, scaledImpr
}

func parseAgeRange(age string) (int, int, bool) {
	if m := ageRangeRe.FindStringSubmatch(age); m != nil {
		from, err1 := strconv.Atoi(m[1])
		to, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil || from > to {
			return 0, 0, false
		}
		return from, to, true
	}

	if m := ageOpenRe.FindStringSubmatch(age); m != nil {
		from, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, 0, false
		}
		return from, maxAge, true
	}

	return 0, 0, false
}

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
