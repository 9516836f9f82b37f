package prompt

// Built-in role IDs.
const (
	RoleProposer = "proposer"
	RoleRefiner  = "refiner"
	RoleRepairer = "repairer"
	RoleJudge    = "judge"
)

const commandGrammar = `Respond with exactly ONE command block and nothing else outside it.

Full replacement:
<<<COMMAND replace
...entire new artifact content...
>>>END

Targeted edit (anchor must appear exactly once in the current artifact):
<<<COMMAND edit
...anchor text to find...
<<<WITH
...replacement text...
>>>END`

var builtinRoles = []Role{
	{
		ID:              RoleProposer,
		Description:     "cold-start author of the first artifact",
		AllowedCommands: []string{"replace"},
		Template: `You are starting a new artifact from scratch for the task described in the input JSON under "seed".
Produce a complete first version.

` + commandGrammar + `

Only the replace form is allowed for a first version.`,
	},
	{
		ID:              RoleRefiner,
		Description:     "incremental improver of a working artifact",
		AllowedCommands: []string{"replace", "edit"},
		Template: `You are improving an existing artifact. The input JSON carries the task ("seed"),
the current artifact ("artifact"), recent attempt history ("history"), and optional
notes from other runs ("external"). Propose the single most valuable improvement.
Prefer a targeted edit; replace wholesale only when restructuring.

` + commandGrammar,
	},
	{
		ID:              RoleRepairer,
		Description:     "corrective editor reacting to a failure diagnostic",
		AllowedCommands: []string{"replace", "edit"},
		Template: `Your previous command produced a failing artifact. The diagnostic output is in the
input JSON under "diagnostic"; the last committed good artifact is under "artifact".
Issue one corrective command that fixes the reported failure. Do not start over
unless the diagnostic leaves no alternative.

` + commandGrammar,
	},
	{
		ID:              RoleJudge,
		Description:     "scores a validated artifact",
		AllowedCommands: nil,
		Template: `Rate how well the candidate artifact (input JSON "candidate") fulfills the task
(input JSON "seed") on a 0-10 scale, 10 being flawless. Judge correctness first,
then clarity and economy.

Respond with JSON only: {"score": <number>}`,
	},
}
