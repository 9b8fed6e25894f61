package profile

// StructuralType is the syntactic shape of a column, decided from the
// dominant value pattern.
type StructuralType string

const (
	StructuralMissingData StructuralType = "missing_data"
	StructuralInteger     StructuralType = "integer"
	StructuralFloat       StructuralType = "float"
	StructuralText        StructuralType = "text"
	StructuralGeoPoint    StructuralType = "geo_point"
	StructuralGeoPolygon  StructuralType = "geo_polygon"
)

// SemanticType is a meaning tag layered on top of the structural type.
// A column carries a set of them.
type SemanticType string

const (
	SemanticBoolean     SemanticType = "boolean"
	SemanticDateTime    SemanticType = "date_time"
	SemanticCategorical SemanticType = "categorical"
	SemanticLatitude    SemanticType = "latitude"
	SemanticLongitude   SemanticType = "longitude"
	SemanticAdmin       SemanticType = "administrative_area"
	SemanticIdentifier  SemanticType = "identifier"
	SemanticFreeText    SemanticType = "free_text"
)

// TemporalResolution is the granularity of a temporal column.
type TemporalResolution string

const (
	ResolutionYear  TemporalResolution = "year"
	ResolutionMonth TemporalResolution = "month"
	ResolutionDay   TemporalResolution = "day"
)
