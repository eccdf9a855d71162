package domain

// Gallery — сохранённый снимок фрактала: thumbnail (data-URL) и параметры
// рендера. Лайки хранятся массивом id пользователей, повторный лайк снимает его.
type Gallery struct {
	ID        int64             `json:"id"`
	UserID    string            `json:"user_id"`
	Thumbnail string            `json:"thumbnail"`
	Props     map[string]string `json:"props"`
	Likes     []string          `json:"likes"`
	CreatedAt int64             `json:"created_at"`
}

// Pagination — блок пагинации в ответе списка.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// GalleryPage — страница записей вместе с пагинацией.
type GalleryPage struct {
	Records    []Gallery  `json:"records"`
	Pagination Pagination `json:"pagination"`
}
