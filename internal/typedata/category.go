package typedata

// Category groups types for list colouring.
type Category string

const (
	CategoryWorker         Category = "worker"
	CategorySupplyProvider Category = "supply"
	CategoryRefinery       Category = "refinery"
	CategoryBuilding       Category = "building"
	CategoryOther          Category = "other"
)

var categoryColors = map[Category]string{
	CategoryWorker:         "#d9ffff",
	CategorySupplyProvider: "#fff9d9",
	CategoryRefinery:       "#d9ffd9",
	CategoryBuilding:       "#f1dfdf",
	CategoryOther:          "#bebebe",
}

// CategoryOf classifies a type. Flags are checked in priority order, so a
// refinery that is also a building is a refinery.
func CategoryOf(td TypeData) Category {
	switch {
	case td.IsWorker:
		return CategoryWorker
	case td.IsSupplyProvider:
		return CategorySupplyProvider
	case td.IsRefinery:
		return CategoryRefinery
	case td.IsBuilding:
		return CategoryBuilding
	default:
		return CategoryOther
	}
}

// Color returns the list background for a category.
func (c Category) Color() string {
	if col, ok := categoryColors[c]; ok {
		return col
	}
	return categoryColors[CategoryOther]
}
