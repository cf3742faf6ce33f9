// Package buildinfo carries version control details injected at link time:
//
//	go build -ldflags "-X github.com/kyleponte/signaltiming/internal/buildinfo.CommitHash=$(git rev-parse HEAD)"
package buildinfo

var (
	CommitHash    = ""
	Branch        = ""
	BuildTime     = ""
	CommitTime    = ""
	CommitMessage = ""
	Version       = "dev"
	Dirty         = ""
	Host          = ""
	UserName      = ""
	UserEmail     = ""
	RemoteURL     = ""
)

// ShortHash is the first seven characters of CommitHash, or "unknown".
func ShortHash() string {
	if len(CommitHash) >= 7 {
		return CommitHash[:7]
	}
	return "unknown"
}
