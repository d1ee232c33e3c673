package models

type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

type UserTotal struct {
	UserID string  `json:"user_id"`
	Total  float64 `json:"total"`
}

type MonthTotal struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Total float64 `json:"total"`
}

// Stats — агрегаты по группе, готовые для графиков.
type Stats struct {
	Total      float64         `json:"total"`
	ByCategory []CategoryTotal `json:"by_category"`
	ByUser     []UserTotal     `json:"by_user"`
	Monthly    []MonthTotal    `json:"monthly"`
}

// StatsParams — фильтр периода. Year/Month учитываются только при соответствующем Period.
type StatsParams struct {
	Period string `json:"period" validate:"omitempty,oneof=all year month"`
	Year   int    `json:"year" validate:"omitempty,gte=1970,lte=9999"`
	Month  int    `json:"month" validate:"omitempty,gte=1,lte=12"`
}
