package genome

import (
	"strconv"

	"github.com/annotdb/annotdb/internal/species"
)

// ForEnsemblRelease builds a Genome for one species and Ensembl release,
// with the GTF and sequence URLs derived from Ensembl's release layout.
// release=0 selects the newest known release.
func ForEnsemblRelease(speciesName string, release int, opts ...Option) (*Genome, error) {
	sp, err := species.FindByName(speciesName)
	if err != nil {
		return nil, err
	}
	release, err = species.CheckRelease(release)
	if err != nil {
		return nil, err
	}
	reference, err := sp.WhichReference(release)
	if err != nil {
		return nil, err
	}

	gtfURL, err := species.GTFURL(sp, release)
	if err != nil {
		return nil, err
	}
	cdnaURL, err := species.TranscriptFastaURL(sp, release)
	if err != nil {
		return nil, err
	}
	ncrnaURL, err := species.NcRNAFastaURL(sp, release)
	if err != nil {
		return nil, err
	}
	pepURL, err := species.ProteinFastaURL(sp, release)
	if err != nil {
		return nil, err
	}

	opts = append([]Option{
		WithTranscriptFasta(cdnaURL, ncrnaURL),
		WithProteinFasta(pepURL),
	}, opts...)
	return New(reference, "ensembl", strconv.Itoa(release), gtfURL, opts...), nil
}
