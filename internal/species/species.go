// Package species carries the static reference metadata the annotation
// engine consumes: which reference assembly a species uses in each
// annotation release, and how Ensembl lays out its release files.
package species

import (
	"fmt"
	"sort"
	"strings"
)

// ReleaseRange is an inclusive range of Ensembl releases.
type ReleaseRange struct {
	First int
	Last  int
}

// Species maps a species name and its synonyms onto the reference
// assemblies used across Ensembl releases.
type Species struct {
	LatinName string
	Synonyms  []string
	// ReferenceAssemblies maps assembly names onto the inclusive release
	// ranges they cover, e.g. {"GRCh37": {54, 75}}.
	ReferenceAssemblies map[string]ReleaseRange
}

// WhichReference returns the assembly name this species uses in the
// given release.
func (s *Species) WhichReference(release int) (string, error) {
	for assembly, r := range s.ReferenceAssemblies {
		if release >= r.First && release <= r.Last {
			return assembly, nil
		}
	}
	return "", fmt.Errorf("no reference for %s in Ensembl release %d", s.LatinName, release)
}

// MaxRelease returns the newest release covered by the given assembly.
func (s *Species) MaxRelease(assembly string) (int, error) {
	r, ok := s.ReferenceAssemblies[assembly]
	if !ok {
		return 0, fmt.Errorf("unknown assembly %q for %s", assembly, s.LatinName)
	}
	return r.Last, nil
}

var (
	latinNames     = map[string]*Species{}
	commonNames    = map[string]*Species{}
	referenceNames = map[string]*Species{}
)

// register panics on conflicting entries: the tables are static data and
// a conflict is a programming error.
func register(latinName string, synonyms []string, assemblies map[string]ReleaseRange) *Species {
	s := &Species{
		LatinName:           strings.ToLower(strings.ReplaceAll(latinName, " ", "_")),
		Synonyms:            synonyms,
		ReferenceAssemblies: assemblies,
	}
	latinNames[s.LatinName] = s
	for _, synonym := range synonyms {
		if existing, ok := commonNames[synonym]; ok {
			panic(fmt.Sprintf("synonym %q used for both %s and %s",
				synonym, s.LatinName, existing.LatinName))
		}
		commonNames[synonym] = s
	}
	for assembly := range assemblies {
		if existing, ok := referenceNames[assembly]; ok {
			panic(fmt.Sprintf("assembly %q used for both %s and %s",
				assembly, s.LatinName, existing.LatinName))
		}
		referenceNames[assembly] = s
	}
	return s
}

// Human and mouse cover the releases annotdb is regularly used with;
// other species resolve through FindByAssembly on their assembly name.
var (
	Human = register("homo sapiens",
		[]string{"human"},
		map[string]ReleaseRange{
			"NCBI36": {54, 54},
			"GRCh37": {55, 75},
			"GRCh38": {76, MaxEnsemblRelease},
		})

	Mouse = register("mus musculus",
		[]string{"mouse", "house mouse"},
		map[string]ReleaseRange{
			"NCBIM37": {54, 67},
			"GRCm38":  {68, 102},
			"GRCm39":  {103, MaxEnsemblRelease},
		})
)

// FindByName resolves a latin name or a common-name synonym.
func FindByName(name string) (*Species, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	if s, ok := latinNames[key]; ok {
		return s, nil
	}
	if s, ok := commonNames[key]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unknown species %q", name)
}

// FindByAssembly resolves the species owning a reference assembly name.
func FindByAssembly(assembly string) (*Species, error) {
	if s, ok := referenceNames[assembly]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unknown reference assembly %q", assembly)
}

// WhichReference returns the assembly used by the named species in the
// given release.
func WhichReference(name string, release int) (string, error) {
	s, err := FindByName(name)
	if err != nil {
		return "", err
	}
	release, err = CheckRelease(release)
	if err != nil {
		return "", err
	}
	return s.WhichReference(release)
}

// MaxRelease returns the newest release available for an assembly name.
func MaxRelease(assembly string) (int, error) {
	s, err := FindByAssembly(assembly)
	if err != nil {
		return 0, err
	}
	return s.MaxRelease(assembly)
}

// AllLatinNames returns every registered species, sorted.
func AllLatinNames() []string {
	names := make([]string, 0, len(latinNames))
	for name := range latinNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
