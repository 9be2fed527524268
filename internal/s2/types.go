package s2

// Author is a paper author as returned by the Graph API.
type Author struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

// Paper is a bibliographic record from the Graph API.
type Paper struct {
	PaperID  string   `json:"paperId"`
	Title    string   `json:"title"`
	Abstract string   `json:"abstract"`
	Year     int      `json:"year"`
	Venue    string   `json:"venue"`
	Authors  []Author `json:"authors"`
	URL      string   `json:"url"`
}

// AuthorNames flattens the author list to display names.
func (p *Paper) AuthorNames() []string {
	if len(p.Authors) == 0 {
		return nil
	}
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

// searchResponse is the envelope of /paper/search.
type searchResponse struct {
	Total int     `json:"total"`
	Data  []Paper `json:"data"`
}

// citationsResponse is the envelope of /paper/{id}/citations. Each entry
// nests the citing paper.
type citationsResponse struct {
	Data []struct {
		CitingPaper *Paper `json:"citingPaper"`
	} `json:"data"`
}

// referencesResponse is the envelope of /paper/{id}/references. Each entry
// nests the cited paper.
type referencesResponse struct {
	Data []struct {
		CitedPaper *Paper `json:"citedPaper"`
	} `json:"data"`
}
