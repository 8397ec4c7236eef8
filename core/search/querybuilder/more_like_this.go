package querybuilder

import "github.com/olivere/elastic/v7"

// MoreLikeThis finds documents resembling the one stored under a link in
// any of the content indices.
type MoreLikeThis struct {
	link    string
	indices []string
}

func NewMoreLikeThis(link string, indices []string) MoreLikeThis {
	return MoreLikeThis{link: link, indices: indices}
}

func (m MoreLikeThis) Payload() elastic.Query {
	items := make([]*elastic.MoreLikeThisQueryItem, 0, len(m.indices))
	for _, index := range m.indices {
		items = append(items, elastic.NewMoreLikeThisQueryItem().Id(m.link).Index(index))
	}
	// min_doc_freq 0 lets terms unique to the liked document count.
	return elastic.NewMoreLikeThisQuery().LikeItems(items...).MinDocFreq(0)
}
