package compiler

// StageName is a strongly-typed identifier for a compilation stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StageTitle         StageName = "title"
	StageStage         StageName = "stage"
	StageAssetCheck    StageName = "asset_check"
	StagePandoc        StageName = "pandoc"
	StageXelatexFirst  StageName = "xelatex_first_pass"
	StageXelatexSecond StageName = "xelatex_second_pass"
	StageVerify        StageName = "verify"
	StageMove          StageName = "move"
	StagePublish       StageName = "publish"
)

func (s StageName) String() string {
	return string(s)
}
