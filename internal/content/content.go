// Package content сводит записи контент-менеджера (статьи, объявления, курсы,
// книги, магазины, клиники, потерявшиеся питомцы) к одной модели списка.
//
// Каждый тип хранит поля под своими исходными именами; только Normalize
// знает, как каждый вариант ложится на Item.
package content

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/psds-microservice/consultation-service/internal/errs"
)

type Type string

const (
	TypeArticle Type = "article"
	TypeAd      Type = "ad"
	TypeCourse  Type = "course"
	TypeBook    Type = "book"
	TypeStore   Type = "store"
	TypeClinic  Type = "clinic"
	TypeLostPet Type = "lost_pet"
)

var Types = []Type{TypeArticle, TypeAd, TypeCourse, TypeBook, TypeStore, TypeClinic, TypeLostPet}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", errs.ErrUnknownContentType, s)
}

// Record: одна из структур-вариантов ниже.
type Record interface {
	ContentType() Type
	validate() error
}

type Article struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	AuthorName  string `json:"author_name"`
	CoverImage  string `json:"cover_image"`
	IsPublished bool   `json:"is_published"`
}

type Ad struct {
	Headline  string `json:"headline"`
	TargetURL string `json:"target_url"`
	BannerURL string `json:"banner_url"`
	Placement string `json:"placement"`
	IsActive  bool   `json:"is_active"`
}

type Course struct {
	Name       string  `json:"name"`
	Instructor string  `json:"instructor"`
	Thumbnail  string  `json:"thumbnail"`
	Price      float64 `json:"price"`
	Enabled    bool    `json:"enabled"`
}

type Book struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	CoverURL  string `json:"cover_url"`
	Available bool   `json:"available"`
}

type Store struct {
	StoreName string `json:"store_name"`
	City      string `json:"city"`
	Logo      string `json:"logo"`
	Status    string `json:"status"`
}

type Clinic struct {
	ClinicName string `json:"clinic_name"`
	Address    string `json:"address"`
	PhotoURL   string `json:"photo_url"`
	IsOpen     bool   `json:"is_open"`
}

type LostPet struct {
	PetName      string   `json:"pet_name"`
	Species      string   `json:"species"`
	LastSeenArea string   `json:"last_seen_area"`
	Images       []string `json:"images"`
	Found        bool     `json:"found"`
}

func (Article) ContentType() Type { return TypeArticle }
func (Ad) ContentType() Type      { return TypeAd }
func (Course) ContentType() Type  { return TypeCourse }
func (Book) ContentType() Type    { return TypeBook }
func (Store) ContentType() Type   { return TypeStore }
func (Clinic) ContentType() Type  { return TypeClinic }
func (LostPet) ContentType() Type { return TypeLostPet }

func (r Article) validate() error { return required(TypeArticle, "title", r.Title) }
func (r Ad) validate() error      { return required(TypeAd, "headline", r.Headline) }
func (r Course) validate() error  { return required(TypeCourse, "name", r.Name) }
func (r Book) validate() error    { return required(TypeBook, "title", r.Title) }
func (r Store) validate() error   { return required(TypeStore, "store_name", r.StoreName) }
func (r Clinic) validate() error  { return required(TypeClinic, "clinic_name", r.ClinicName) }
func (r LostPet) validate() error { return required(TypeLostPet, "pet_name", r.PetName) }

func required(t Type, field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s.%s is required", errs.ErrInvalidContent, t, field)
	}
	return nil
}

// Item: общая строка списка в контент-менеджере.
type Item struct {
	ID        uint64    `json:"id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Decode разбирает сырое тело в запись типа t и валидирует её.
func Decode(t Type, raw []byte) (Record, error) {
	var rec Record
	var err error
	switch t {
	case TypeArticle:
		rec, err = decodeAs[Article](raw)
	case TypeAd:
		rec, err = decodeAs[Ad](raw)
	case TypeCourse:
		rec, err = decodeAs[Course](raw)
	case TypeBook:
		rec, err = decodeAs[Book](raw)
	case TypeStore:
		rec, err = decodeAs[Store](raw)
	case TypeClinic:
		rec, err = decodeAs[Clinic](raw)
	case TypeLostPet:
		rec, err = decodeAs[LostPet](raw)
	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownContentType, t)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidContent, err)
	}
	if err := rec.validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeAs[T Record](raw []byte) (Record, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Normalize переводит запись в Item. ID и CreatedAt заполняет вызывающий.
func Normalize(r Record) Item {
	switch v := r.(type) {
	case Article:
		return Item{Type: TypeArticle, Title: v.Title, Subtitle: firstNonEmpty(v.AuthorName, v.Summary), ImageURL: v.CoverImage, Active: v.IsPublished}
	case Ad:
		return Item{Type: TypeAd, Title: v.Headline, Subtitle: v.Placement, ImageURL: v.BannerURL, Active: v.IsActive}
	case Course:
		sub := v.Instructor
		if v.Price > 0 {
			sub = strings.TrimSpace(fmt.Sprintf("%s %.2f", sub, v.Price))
		}
		return Item{Type: TypeCourse, Title: v.Name, Subtitle: sub, ImageURL: v.Thumbnail, Active: v.Enabled}
	case Book:
		return Item{Type: TypeBook, Title: v.Title, Subtitle: v.Author, ImageURL: v.CoverURL, Active: v.Available}
	case Store:
		return Item{Type: TypeStore, Title: v.StoreName, Subtitle: v.City, ImageURL: v.Logo, Active: strings.EqualFold(v.Status, "active")}
	case Clinic:
		return Item{Type: TypeClinic, Title: v.ClinicName, Subtitle: v.Address, ImageURL: v.PhotoURL, Active: v.IsOpen}
	case LostPet:
		item := Item{Type: TypeLostPet, Title: v.PetName, Subtitle: firstNonEmpty(v.LastSeenArea, v.Species), Active: !v.Found}
		if len(v.Images) > 0 {
			item.ImageURL = v.Images[0]
		}
		return item
	}
	return Item{}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
