package models

import (
	"github.com/kyleponte/signaltiming/internal/appconf"
	"github.com/kyleponte/signaltiming/internal/buildinfo"
)

type GitProperties struct {
	GitBranch             string `json:"git.branch"`
	GitBuildHost          string `json:"git.build.host"`
	GitBuildTime          string `json:"git.build.time"`
	GitBuildVersion       string `json:"git.build.version"`
	GitCommitId           string `json:"git.commit.id"`
	GitCommitIdAbbrev     string `json:"git.commit.id.abbrev"`
	GitCommitMessageShort string `json:"git.commit.message.short"`
	GitCommitTime         string `json:"git.commit.time"`
	GitDirty              string `json:"git.dirty"`
	GitRemoteOriginUrl    string `json:"git.remote.origin.url"`
}

func NewGitProperties() GitProperties {
	return GitProperties{
		GitBranch:             buildinfo.Branch,
		GitBuildHost:          buildinfo.Host,
		GitBuildTime:          buildinfo.BuildTime,
		GitBuildVersion:       buildinfo.Version,
		GitCommitId:           buildinfo.CommitHash,
		GitCommitIdAbbrev:     buildinfo.ShortHash(),
		GitCommitMessageShort: buildinfo.CommitMessage,
		GitCommitTime:         buildinfo.CommitTime,
		GitDirty:              buildinfo.Dirty,
		GitRemoteOriginUrl:    buildinfo.RemoteURL,
	}
}

// AnalysisSettings echoes the delay model and generator configuration.
type AnalysisSettings struct {
	SaturationFlow  float64  `json:"saturationFlow"`
	IntervalMinutes float64  `json:"intervalMinutes"`
	NoGreenDelay    float64  `json:"noGreenDelay"`
	Epsilon         float64  `json:"epsilon"`
	CycleLength     float64  `json:"cycleLength"`
	LostTime        float64  `json:"lostTime"`
	MinGreen        float64  `json:"minGreen"`
	Window          string   `json:"window"`
	MaxPasses       int      `json:"maxPasses"`
	Blend           *float64 `json:"blend,omitempty"`
	Workers         int      `json:"workers"`
	Baselines       int      `json:"configuredBaselines"`
	DefaultBaseline bool     `json:"defaultBaseline"`
}

func NewAnalysisSettings(a appconf.AnalysisConfig) AnalysisSettings {
	return AnalysisSettings{
		SaturationFlow:  a.Delay.SaturationFlow,
		IntervalMinutes: a.Delay.Interval.Minutes(),
		NoGreenDelay:    a.Delay.NoGreenDelay,
		Epsilon:         a.Delay.Epsilon,
		CycleLength:     a.Generator.CycleLength,
		LostTime:        a.Generator.LostTime,
		MinGreen:        a.Generator.MinGreen,
		Window:          string(a.Generator.Window),
		MaxPasses:       a.Generator.MaxPasses,
		Blend:           a.Blend,
		Workers:         a.Workers,
		Baselines:       len(a.Baselines),
		DefaultBaseline: a.DefaultBaseline != nil,
	}
}

type ConfigModel struct {
	GitProperties GitProperties    `json:"gitProperties"`
	Id            string           `json:"id"`
	Name          string           `json:"name"`
	Environment   string           `json:"environment"`
	Analysis      AnalysisSettings `json:"analysis"`
}
