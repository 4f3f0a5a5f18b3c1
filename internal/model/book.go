package model

// Author describes the writer of a catalog book. Authors are stored in
// their own table and referenced from books; the extra academic fields
// come with the CSV import format used to seed the catalog.
//
// Fields:
//  ID            – primary key identifier.
//  Name          – given name.
//  Surname       – family name.
//  Patronymic    – patronymic, may be empty.
//  ScienceDegree – academic degree, may be empty.
//  Workplace     – affiliated institution, may be empty.
//  Faculty       – faculty within the institution, may be empty.
type Author struct {
	ID            uint64 // authors.id
	Name          string // authors.name
	Surname       string // authors.surname
	Patronymic    string // authors.patronymic
	ScienceDegree string // authors.science_degree
	Workplace     string // authors.workplace
	Faculty       string // authors.faculty
}

// Genre is a catalog classification for books (e.g. textbook, fiction).
//
// Fields:
//  ID   – primary key identifier.
//  Name – unique genre name.
type Genre struct {
	ID   uint64 // genres.id
	Name string // genres.name
}

// Book is a catalog item with a finite number of physical copies. Count
// bounds how many sessions may hold the book at the same instant; the
// scheduling engine treats it as the book's capacity.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – book title.
//  Author      – the book's author (joined from authors).
//  Genre       – the book's genre (joined from genres).
//  PublishYear – year of publication.
//  Count       – number of physical copies available in the room.
//  ImagePath   – path to the cover image on disk, may be empty.
type Book struct {
	ID          uint64 // books.id
	Name        string // books.name
	Author      Author // books.author_id -> authors
	Genre       Genre  // books.genre_id -> genres
	PublishYear int    // books.publish_year
	Count       int    // books.count
	ImagePath   string // books.image_path
}
