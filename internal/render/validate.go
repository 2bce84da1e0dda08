package render

import (
	"os"

	"slidecast/internal/pkg/errors"
)

// ValidateArtifact re-checks filesystem state after the encoder reports
// success. A zero exit code is necessary but not sufficient: partial writes
// and disk-full truncation still happen, so the artifact must exist and
// clear the minimum-size floor before a job may be marked complete.
func ValidateArtifact(path string, minBytes int64) (int64, error) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.ArtifactInvalid("output file was not created")
		}
		return 0, errors.IO(err, "artifact.stat", "failed to stat output file")
	}

	size := st.Size()
	if size < minBytes {
		return size, errors.ArtifactInvalid("output file below minimum size").
			WithField("size_bytes", size).
			WithField("min_bytes", minBytes)
	}
	return size, nil
}
