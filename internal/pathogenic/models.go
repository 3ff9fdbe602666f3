// Package pathogenic looks up plant diseases and the culture they affect.
package pathogenic

// Culture is a crop species.
type Culture struct {
	ID             int64
	Name           string
	ScientificName string
}

// Pathogenic is a disease agent together with the culture it is tracked for.
type Pathogenic struct {
	ID             int64
	Name           string
	ScientificName string
	Culture        Culture
}
