package params

// AllowedSortFields are the only fields results can be ordered by. Sorting
// on arbitrary fields is expensive for the engine.
var AllowedSortFields = []string{
	"public_timestamp",
	"closing_date",
	"title",
	"tribunal_decision_decision_date",
	"start_date",
	"assessment_date",
	"popularity",
	"release_timestamp",
}

var sortMappings = map[string]string{
	"title": "title.sort",
}

// Incoming filter names are renamed with this mapping; others pass
// through.
var filterNameMapping = map[string]string{
	"document_type":      "document_type",
	"elasticsearch_type": "document_type",
}

// AllowedAggregateFields are the fields aggregates may be requested for.
var AllowedAggregateFields = []string{
	"content_purpose_document_supertype",
	"content_purpose_subgroup",
	"content_purpose_supergroup",
	"content_store_document_type",
	"detailed_format",
	"document_collections",
	"document_series",
	"email_document_supertype",
	"format",
	"government_document_supertype",
	"mainstream_browse_pages",
	"manual",
	"navigation_document_supertype",
	"organisation_type",
	"organisations",
	"part_of_taxonomy_tree",
	"people",
	"policies",
	"policy_areas",
	"primary_publishing_organisation",
	"publishing_app",
	"rendering_app",
	"roles",
	"search_format_types",
	"search_user_need_document_supertype",
	"specialist_sectors",
	"taxons",
	"topical_events",
	"user_journey_document_supertype",
	"world_locations",
}

// AllowedAggregateExampleFields are the aggregates examples may be
// requested for. Each option costs one extra search.
var AllowedAggregateExampleFields = []string{
	"content_store_document_type",
	"content_purpose_subgroup",
	"content_purpose_supergroup",
	"email_document_supertype",
	"format",
	"government_document_supertype",
	"mainstream_browse_pages",
	"manual",
	"navigation_document_supertype",
	"organisations",
	"part_of_taxonomy_tree",
	"publishing_app",
	"rendering_app",
	"specialist_sectors",
	"taxons",
	"topical_events",
}

// Keys aggregate options may be ordered by, each optionally prefixed with
// "-" for descending order.
var allowedAggregateOrderKeys = []string{
	"filtered",
	"count",
	"value",
	"value.slug",
	"value.title",
	"value.link",
}

// DefaultReturnFields are returned when the request names no fields.
var DefaultReturnFields = []string{
	"description",
	"display_type",
	"document_series",
	"format",
	"link",
	"organisations",
	"public_timestamp",
	"slug",
	"specialist_sectors",
	"title",
	"policy_areas",
	"world_locations",
	"topic_content_ids",
	"topical_events",
	"expanded_topics",
	"organisation_content_ids",
	"expanded_organisations",
}

// VirtualFields can be requested but are computed on presentation.
var VirtualFields = []string{
	"title_with_highlighting",
	"description_with_highlighting",
	"expanded_topics",
	"expanded_organisations",
}

// DefaultExampleFields are returned for aggregate examples when the
// request names no example_fields.
var DefaultExampleFields = []string{"link", "title"}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
