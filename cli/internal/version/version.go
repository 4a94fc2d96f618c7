// Package version reports the CLI build and checks database server versions.
package version

import (
	"fmt"
	"runtime"

	goversion "github.com/hashicorp/go-version"

	"github.com/dbkit-go/dbkit/query/sqlgen"
)

var (
	// Version is the version of the CLI
	Version = "0.1.0"
	// BuildDate is the build date
	BuildDate = "unknown"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Info holds version information
type Info struct {
	Version   string `yaml:"version"`
	BuildDate string `yaml:"build_date"`
	GitCommit string `yaml:"git_commit"`
	GoVersion string `yaml:"go_version"`
	Platform  string `yaml:"platform"`
}

// Get returns version information
func Get() Info {
	return Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a formatted version string
func (i Info) String() string {
	return fmt.Sprintf("dbkit version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString returns a detailed version string
func (i Info) FullString() string {
	return fmt.Sprintf(`dbkit version %s
Build Date: %s
Git Commit: %s
Platform: %s
Go Version: %s`, i.Version, i.BuildDate, i.GitCommit, i.Platform, i.GoVersion)
}

// minimum server versions the compilers target.
var minimum = map[string]string{
	sqlgen.MySQLDialect:  ">= 5.7",
	sqlgen.SQLiteDialect: ">= 3.8",
}

// features lists server versions that unlock statements.
var features = map[string][]struct {
	constraint string
	feature    string
}{
	sqlgen.MySQLDialect: {
		{">= 8.0.0", "ALTER TABLE ... RENAME COLUMN"},
	},
	sqlgen.SQLiteDialect: {
		{">= 3.25.0", "ALTER TABLE ... RENAME COLUMN"},
		{">= 3.35.0", "ALTER TABLE ... DROP COLUMN"},
	},
}

// Server describes what dbkit can do on a database server.
type Server struct {
	Dialect     string   `yaml:"dialect"`
	Version     string   `yaml:"version"`
	Supported   bool     `yaml:"supported"`
	Unavailable []string `yaml:"unavailable,omitempty"`
}

// CheckServer compares a server version with what the dialect's compiler
// needs.
func CheckServer(dialect string, v *goversion.Version) (Server, error) {
	dialect = sqlgen.NormalizeDialect(dialect)
	min, ok := minimum[dialect]
	if !ok {
		return Server{}, fmt.Errorf("unsupported dialect %q", dialect)
	}
	s := Server{Dialect: dialect, Version: v.String()}
	c, err := goversion.NewConstraint(min)
	if err != nil {
		return Server{}, err
	}
	s.Supported = c.Check(v)
	for _, f := range features[dialect] {
		c, err := goversion.NewConstraint(f.constraint)
		if err != nil {
			return Server{}, err
		}
		if !c.Check(v) {
			s.Unavailable = append(s.Unavailable, f.feature)
		}
	}
	return s, nil
}
