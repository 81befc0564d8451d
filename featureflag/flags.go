package featureflag

type Flag string

const (
	// Answers ray casts and nearest point searches from the triangle bounds
	// instead of the triangles.
	FlagBoundsOnlyQueries Flag = "BOUNDS_ONLY_QUERIES"

	// Reports overlaps from the triangle bounds instead of the triangles.
	FlagBoundsOnlyOverlap Flag = "BOUNDS_ONLY_OVERLAP"

	FlagDisableSelfOverlap         Flag = "DISABLE_SELF_OVERLAP"
	FlagDisableLeafUpdate          Flag = "DISABLE_LEAF_UPDATE"
	FlagDisableLeafUpdateBroadcast Flag = "DISABLE_LEAF_UPDATE_BROADCAST"
)

var knownFlags = []Flag{
	FlagBoundsOnlyQueries,
	FlagBoundsOnlyOverlap,
	FlagDisableSelfOverlap,
	FlagDisableLeafUpdate,
	FlagDisableLeafUpdateBroadcast,
}
