package listing

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var regionsYAML []byte

// RegionInfo is the display metadata of a region.
type RegionInfo struct {
	Code Region `yaml:"code"`
	Name string `yaml:"name"`
	Flag string `yaml:"flag"`
}

var (
	catalogOnce sync.Once
	catalog     map[Region]RegionInfo
	catalogList []RegionInfo
)

func loadCatalog() {
	catalogOnce.Do(func() {
		list, err := parseRegions(regionsYAML)
		if err != nil {
			// The catalog is embedded at build time; a parse failure is a build defect.
			panic(fmt.Sprintf("listing: embedded region catalog: %v", err))
		}
		catalogList = list
		catalog = make(map[Region]RegionInfo, len(list))
		for _, r := range list {
			catalog[r.Code] = r
		}
	})
}

func parseRegions(data []byte) ([]RegionInfo, error) {
	var list []RegionInfo
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing regions: %w", err)
	}
	for i := range list {
		list[i].Code = CanonicalRegion(string(list[i].Code))
		if list[i].Name == "" {
			return nil, fmt.Errorf("region %q has no name", list[i].Code)
		}
	}
	return list, nil
}

// Regions returns the region catalog in declaration order, GLOBAL first.
func Regions() []RegionInfo {
	loadCatalog()
	out := make([]RegionInfo, len(catalogList))
	copy(out, catalogList)
	return out
}

// IsKnownRegion reports whether r appears in the catalog.
func IsKnownRegion(r Region) bool {
	loadCatalog()
	_, ok := catalog[r]
	return ok
}

// Describe returns display metadata for r. Regions missing from the catalog
// get a title-cased name and the globe glyph.
func Describe(r Region) RegionInfo {
	loadCatalog()
	if info, ok := catalog[r]; ok {
		return info
	}
	name := strings.ToLower(strings.ReplaceAll(string(r), "_", " "))
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return RegionInfo{Code: r, Name: name, Flag: "🌍"}
}
