package kafka

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/roadrunner-server/errors"
	"github.com/spf13/viper"
	"github.com/stoq-plugins/kafka/kafkaconn"
)

// manifest keys, bit-exact with the plugin archive format
const (
	coreName   string = "Core.Name"
	coreModule string = "Core.Module"

	docAuthor      string = "Documentation.Author"
	docVersion     string = "Documentation.Version"
	docWebsite     string = "Documentation.Website"
	docDescription string = "Documentation.Description"

	optMinHostVersion string = "options.min_stoq_version"
	optMultiprocess   string = "options.multiprocess"
	optServersList    string = "options.servers_list"
	optGroup          string = "options.group"
	optRetries        string = "options.retries"
)

// Manifest is the INI plugin descriptor the host discovers the connector by:
// a [Core] section with the plugin name and module, a [Documentation]
// section with authorship metadata, and an [options] section carrying the
// connector defaults.
type Manifest struct {
	// [Core]
	Name   string
	Module string

	// [Documentation]
	Author      string
	Version     string
	Website     string
	Description string

	// [options]
	MinHostVersion string
	Multiprocess   bool
	Servers        []string
	Group          string
	Retries        int
}

// LoadManifest reads and parses a plugin manifest file.
func LoadManifest(path string) (*Manifest, error) {
	const op = errors.Op("kafka_manifest_load")

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(op, err)
	}
	defer func() {
		_ = f.Close()
	}()

	return ParseManifest(f)
}

// ParseManifest parses an INI plugin manifest.
func ParseManifest(r io.Reader) (*Manifest, error) {
	const op = errors.Op("kafka_manifest_parse")

	v := viper.New()
	v.SetConfigType("ini")

	v.SetDefault(optServersList, "127.0.0.1:9092")
	v.SetDefault(optGroup, "stoq")
	v.SetDefault(optRetries, 5)

	if err := v.ReadConfig(r); err != nil {
		return nil, errors.E(op, err)
	}

	m := &Manifest{
		Name:   v.GetString(coreName),
		Module: v.GetString(coreModule),

		Author:      v.GetString(docAuthor),
		Version:     v.GetString(docVersion),
		Website:     v.GetString(docWebsite),
		Description: v.GetString(docDescription),

		MinHostVersion: v.GetString(optMinHostVersion),
		Multiprocess:   v.GetBool(optMultiprocess),
		Group:          v.GetString(optGroup),
		Retries:        v.GetInt(optRetries),
	}

	for _, s := range strings.Split(v.GetString(optServersList), ",") {
		if s = strings.TrimSpace(s); s != "" {
			m.Servers = append(m.Servers, s)
		}
	}

	if m.Name == "" {
		return nil, errors.E(op, errors.Str("manifest is missing the Core plugin name"))
	}

	return m, nil
}

// ConnectorConfig derives the connector configuration from the manifest
// options. Validation happens in the connector constructor.
func (m *Manifest) ConnectorConfig() *kafkaconn.Config {
	retries := m.Retries
	return &kafkaconn.Config{
		Servers:      m.Servers,
		Group:        m.Group,
		Retries:      &retries,
		Multiprocess: m.Multiprocess,
	}
}

// Compatible reports whether the host satisfies the manifest's
// min_stoq_version gate. The connector itself never checks this; the host
// does, before constructing anything.
func (m *Manifest) Compatible(hostVersion string) bool {
	if m.MinHostVersion == "" {
		return true
	}
	return compareVersions(hostVersion, m.MinHostVersion) >= 0
}

// compareVersions compares dotted numeric versions; a missing segment counts
// as zero, non-numeric segments compare lexically.
func compareVersions(a, b string) int {
	as := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bs := strings.Split(strings.TrimPrefix(b, "v"), ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		av, bv := "0", "0"
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}

		an, aerr := strconv.Atoi(av)
		bn, berr := strconv.Atoi(bv)
		if aerr != nil || berr != nil {
			if av != bv {
				return strings.Compare(av, bv)
			}
			continue
		}

		if an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
	}

	return 0
}
