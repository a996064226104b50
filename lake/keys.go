// Package lake defines the data lake layout: the object keys used by every
// writer and the sample scaffold created by "volt lake".
package lake

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Top-level layers.
const (
	RawPrefix     = "raw/"
	StagingPrefix = "staging/"
	MartPrefix    = "mart/"
)

const (
	partitionDate  = "2006-01-02"
	exportStamp    = "20060102_150405"
	componentsRoot = "raw/components"
)

// ImageKey is the object key of a component image.
func ImageKey(componentID, filename string) string {
	return path.Join("images/components", componentID, filename)
}

// ComponentImageKey is the key of the canonical <id>.jpg image of a component.
func ComponentImageKey(componentID string) string {
	return ImageKey(componentID, componentID+".jpg")
}

// ComponentsJSONKey is the key of a JSON component export. A non-empty
// partition date places the file under dt=<date>; otherwise the name carries
// the export timestamp.
func ComponentsJSONKey(partition string, now time.Time) string {
	if partition != "" {
		return fmt.Sprintf("%s/dt=%s/components.json", componentsRoot, partition)
	}
	return fmt.Sprintf("%s/components_%s.json", componentsRoot, now.Format(exportStamp))
}

// ComponentsCSVKey is the key of the daily CSV export.
func ComponentsCSVKey(now time.Time) string {
	return fmt.Sprintf("%s/dt=%s/components.csv", componentsRoot, now.Format(partitionDate))
}

// PartitionDate formats t as a dt= partition value.
func PartitionDate(t time.Time) string {
	return t.Format(partitionDate)
}

// StagingKey maps a raw CSV key to its staging Parquet key. It reports false
// for keys outside raw/ or without a .csv suffix.
func StagingKey(rawKey string) (string, bool) {
	if !IsRawCSV(rawKey) {
		return "", false
	}
	key := StagingPrefix + strings.TrimPrefix(rawKey, RawPrefix)
	return strings.TrimSuffix(key, ".csv") + ".parquet", true
}

// IsRawCSV reports whether key is a CSV file in the raw layer.
func IsRawCSV(key string) bool {
	return strings.HasPrefix(key, RawPrefix) && strings.HasSuffix(key, ".csv")
}
