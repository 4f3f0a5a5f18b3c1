package handler

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-reading-room/internal/model"
	"github.com/iliyamo/library-reading-room/internal/repository"
	"github.com/iliyamo/library-reading-room/internal/schedule"
)

// BookHandler serves the catalog endpoints: listing, filtered search,
// bulk import from CSV or JSON, deletion and cover image retrieval.
type BookHandler struct {
	Books *repository.BookRepo
}

// NewBookHandler constructs a BookHandler.
func NewBookHandler(b *repository.BookRepo) *BookHandler {
	return &BookHandler{Books: b}
}

// List returns the whole catalog, optionally narrowed by a
// case-insensitive ?name= match.
func (h *BookHandler) List(c echo.Context) error {
	books, err := h.Books.ListByName(c.Request().Context(), strings.TrimSpace(c.QueryParam("name")))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, books)
}

// Filter narrows the catalog by ?name=, ?author=, ?genre= substring
// matches and a ?year_from=/?year_to= range, then sorts the result by
// ?sort_by= (name or publish_year) in ?order= direction. An unknown sort
// key is a 400, not a silent default.
func (h *BookHandler) Filter(c echo.Context) error {
	f := repository.BookFilter{
		Name:          strings.TrimSpace(c.QueryParam("name")),
		AuthorSurname: strings.TrimSpace(c.QueryParam("author")),
		Genre:         strings.TrimSpace(c.QueryParam("genre")),
	}
	for param, dst := range map[string]*int{"year_from": &f.YearFrom, "year_to": &f.YearTo} {
		if raw := c.QueryParam(param); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + param})
			}
			*dst = n
		}
	}
	books, err := h.Books.ListFiltered(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	key := strings.TrimSpace(c.QueryParam("sort_by"))
	if key == "" {
		key = "name"
	}
	if err := repository.SortBooks(books, key, c.QueryParam("order")); err != nil {
		if errors.Is(err, repository.ErrUnknownSortKey) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sort failed"})
	}
	return c.JSON(http.StatusOK, books)
}

// Get returns one book by id.
func (h *BookHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	b, err := h.Books.GetBookByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, b)
}

// Genres lists every catalog genre.
func (h *BookHandler) Genres(c echo.Context) error {
	genres, err := h.Books.ListGenres(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, genres)
}

// Image streams a book's cover image from disk.
func (h *BookHandler) Image(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	b, err := h.Books.GetBookByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if b.ImagePath == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "book has no image"})
	}
	if _, err := os.Stat(b.ImagePath); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "image not found"})
	}
	return c.File(b.ImagePath)
}

// bookImport is the JSON import shape; one element per book with the
// author and genre spelled out inline.
type bookImport struct {
	Name          string `json:"name"`
	AuthorName    string `json:"author_name"`
	AuthorSurname string `json:"author_surname"`
	Patronymic    string `json:"patronymic"`
	ScienceDegree string `json:"science_degree"`
	Workplace     string `json:"workplace"`
	Faculty       string `json:"faculty"`
	Genre         string `json:"genre"`
	PublishYear   int    `json:"publish_year"`
	Count         int    `json:"count"`
}

func (bi bookImport) toModel() model.Book {
	return model.Book{
		Name: bi.Name,
		Author: model.Author{
			Name:          bi.AuthorName,
			Surname:       bi.AuthorSurname,
			Patronymic:    bi.Patronymic,
			ScienceDegree: bi.ScienceDegree,
			Workplace:     bi.Workplace,
			Faculty:       bi.Faculty,
		},
		Genre:       model.Genre{Name: bi.Genre},
		PublishYear: bi.PublishYear,
		Count:       bi.Count,
	}
}

func (bi bookImport) validate() error {
	switch {
	case strings.TrimSpace(bi.Name) == "":
		return errors.New("name is required")
	case strings.TrimSpace(bi.AuthorSurname) == "":
		return errors.New("author_surname is required")
	case strings.TrimSpace(bi.Genre) == "":
		return errors.New("genre is required")
	case bi.Count <= 0:
		return errors.New("count must be positive")
	default:
		return nil
	}
}

// UploadJSON imports a batch of books from a JSON array. The whole
// batch is committed atomically.
func (h *BookHandler) UploadJSON(c echo.Context) error {
	var imports []bookImport
	if err := c.Bind(&imports); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(imports) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no books in payload"})
	}
	books := make([]model.Book, 0, len(imports))
	for i, bi := range imports {
		if err := bi.validate(); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "record " + strconv.Itoa(i+1) + ": " + err.Error(),
			})
		}
		books = append(books, bi.toModel())
	}
	created, err := h.Books.CreateBulk(c.Request().Context(), books)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "import failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"imported": len(created), "books": created})
}

// csvColumns is the expected CSV layout, header optional:
// name,author_name,author_surname,patronymic,science_degree,workplace,faculty,genre,publish_year,count
const csvColumns = 10

// UploadCSV imports a batch of books from a multipart CSV file under the
// "file" form field.
func (h *BookHandler) UploadCSV(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file field is required"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot open upload"})
	}
	defer src.Close()

	books, err := parseBookCSV(src)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if len(books) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no records in file"})
	}
	created, err := h.Books.CreateBulk(c.Request().Context(), books)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "import failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"imported": len(created)})
}

func parseBookCSV(r io.Reader) ([]model.Book, error) {
	rd := csv.NewReader(r)
	rd.FieldsPerRecord = csvColumns
	rd.TrimLeadingSpace = true

	books := make([]model.Book, 0)
	line := 0
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New("malformed csv: " + err.Error())
		}
		line++
		if line == 1 && strings.EqualFold(rec[0], "name") {
			continue // header row
		}
		year, err := strconv.Atoi(strings.TrimSpace(rec[8]))
		if err != nil {
			return nil, errors.New("line " + strconv.Itoa(line) + ": invalid publish_year")
		}
		count, err := strconv.Atoi(strings.TrimSpace(rec[9]))
		if err != nil || count <= 0 {
			return nil, errors.New("line " + strconv.Itoa(line) + ": invalid count")
		}
		bi := bookImport{
			Name:          strings.TrimSpace(rec[0]),
			AuthorName:    strings.TrimSpace(rec[1]),
			AuthorSurname: strings.TrimSpace(rec[2]),
			Patronymic:    strings.TrimSpace(rec[3]),
			ScienceDegree: strings.TrimSpace(rec[4]),
			Workplace:     strings.TrimSpace(rec[5]),
			Faculty:       strings.TrimSpace(rec[6]),
			Genre:         strings.TrimSpace(rec[7]),
			PublishYear:   year,
			Count:         count,
		}
		if err := bi.validate(); err != nil {
			return nil, errors.New("line " + strconv.Itoa(line) + ": " + err.Error())
		}
		books = append(books, bi.toModel())
	}
	return books, nil
}

// Delete removes a book by its exact title (case-insensitive).
func (h *BookHandler) Delete(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("name"))
	if name == "" {
		name = strings.TrimSpace(c.Param("name"))
	}
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if err := h.Books.DeleteByName(c.Request().Context(), name); err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
