package species

import (
	"fmt"
	"strings"
)

// Ensembl release bounds. Release 54 is the oldest with GTFs laid out the
// way the loader expects; the upper bound tracks the newest release the
// registry tables have been checked against.
const (
	MinEnsemblRelease = 54
	MaxEnsemblRelease = 113
)

// EnsemblFTPServer hosts all release files.
const EnsemblFTPServer = "https://ftp.ensembl.org"

// CheckRelease validates a release number. Zero means "latest" and
// resolves to MaxEnsemblRelease.
func CheckRelease(release int) (int, error) {
	if release == 0 {
		return MaxEnsemblRelease, nil
	}
	if release < MinEnsemblRelease || release > MaxEnsemblRelease {
		return 0, fmt.Errorf("invalid Ensembl release %d, must be between %d and %d",
			release, MinEnsemblRelease, MaxEnsemblRelease)
	}
	return release, nil
}

// titleCase capitalizes the first letter of a latin species name the way
// Ensembl filenames do ("homo_sapiens" becomes "Homo_sapiens").
func titleCase(latinName string) string {
	if latinName == "" {
		return ""
	}
	return strings.ToUpper(latinName[:1]) + latinName[1:]
}

// GTFURL returns the URL of the annotation GTF for a species and release.
func GTFURL(s *Species, release int) (string, error) {
	release, err := CheckRelease(release)
	if err != nil {
		return "", err
	}
	reference, err := s.WhichReference(release)
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s.%s.%d.gtf.gz", titleCase(s.LatinName), reference, release)
	return fmt.Sprintf("%s/pub/release-%d/gtf/%s/%s",
		EnsemblFTPServer, release, s.LatinName, filename), nil
}

// TranscriptFastaURL returns the URL of the cDNA sequence FASTA. Releases
// up to 75 embed the release number in the filename; later ones do not.
func TranscriptFastaURL(s *Species, release int) (string, error) {
	return fastaURL(s, release, "cdna", "cdna.all")
}

// NcRNAFastaURL returns the URL of the non-coding RNA sequence FASTA.
func NcRNAFastaURL(s *Species, release int) (string, error) {
	return fastaURL(s, release, "ncrna", "ncrna")
}

// ProteinFastaURL returns the URL of the peptide sequence FASTA.
func ProteinFastaURL(s *Species, release int) (string, error) {
	return fastaURL(s, release, "pep", "pep.all")
}

func fastaURL(s *Species, release int, sequenceType, suffix string) (string, error) {
	release, err := CheckRelease(release)
	if err != nil {
		return "", err
	}
	reference, err := s.WhichReference(release)
	if err != nil {
		return "", err
	}
	var filename string
	if release <= 75 {
		filename = fmt.Sprintf("%s.%s.%d.%s.fa.gz",
			titleCase(s.LatinName), reference, release, suffix)
	} else {
		filename = fmt.Sprintf("%s.%s.%s.fa.gz",
			titleCase(s.LatinName), reference, suffix)
	}
	return fmt.Sprintf("%s/pub/release-%d/fasta/%s/%s/%s",
		EnsemblFTPServer, release, s.LatinName, sequenceType, filename), nil
}
