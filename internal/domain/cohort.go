package domain

// Cohort — именованный набор аудиторий из реестра медиапланов.
type Cohort struct {
	ID    int64
	Name  string
	Abvrs []string
}

func NewCohort(id int64, name string, abvrs []string) *Cohort {
	return &Cohort{
		ID:    id,
		Name:  name,
		Abvrs: abvrs,
	}
}
