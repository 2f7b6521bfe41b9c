package chain

// Contract interfaces, trimmed to the functions this service calls.

const tokenABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]}
]`

const registryABI = `[
	{"type":"function","name":"owner","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getActiveProjects","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"active","type":"address[]"}]},
	{"type":"function","name":"getAllProjects","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"isProjectRegistered","stateMutability":"view",
	 "inputs":[{"name":"projectAddr","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getProject","stateMutability":"view",
	 "inputs":[{"name":"projectAddr","type":"address"}],
	 "outputs":[{"name":"project","type":"tuple","internalType":"struct ProjectRegistry.Project","components":[
		{"name":"projectAddress","type":"address"},
		{"name":"name","type":"string"},
		{"name":"description","type":"string"},
		{"name":"metadataURI","type":"string"},
		{"name":"isActive","type":"bool"},
		{"name":"registeredAt","type":"uint256"}]}]},
	{"type":"function","name":"registerProject","stateMutability":"nonpayable",
	 "inputs":[{"name":"projectAddr","type":"address"},{"name":"name","type":"string"},
	           {"name":"description","type":"string"},{"name":"metadataURI","type":"string"}],"outputs":[]},
	{"type":"function","name":"updateProject","stateMutability":"nonpayable",
	 "inputs":[{"name":"projectAddr","type":"address"},{"name":"name","type":"string"},
	           {"name":"description","type":"string"},{"name":"metadataURI","type":"string"}],"outputs":[]},
	{"type":"function","name":"toggleProjectStatus","stateMutability":"nonpayable",
	 "inputs":[{"name":"projectAddr","type":"address"}],"outputs":[]},
	{"type":"function","name":"removeProject","stateMutability":"nonpayable",
	 "inputs":[{"name":"projectAddr","type":"address"}],"outputs":[]}
]`

const poolABI = `[
	{"type":"function","name":"owner","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"currentRoundId","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getRoundStats","stateMutability":"view",
	 "inputs":[{"name":"roundId","type":"uint256"}],
	 "outputs":[{"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"},
	            {"name":"matchingPool","type":"uint256"},{"name":"totalContributions","type":"uint256"},
	            {"name":"totalContributors","type":"uint256"},{"name":"finalized","type":"bool"}]},
	{"type":"function","name":"getRoundProjects","stateMutability":"view",
	 "inputs":[{"name":"roundId","type":"uint256"}],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"matchingPoolBalance","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"projectTotalContributions","stateMutability":"view",
	 "inputs":[{"name":"roundId","type":"uint256"},{"name":"project","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"projectMatchAmount","stateMutability":"view",
	 "inputs":[{"name":"roundId","type":"uint256"},{"name":"project","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getDonorContribution","stateMutability":"view",
	 "inputs":[{"name":"roundId","type":"uint256"},{"name":"donor","type":"address"},{"name":"project","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"createRound","stateMutability":"nonpayable",
	 "inputs":[{"name":"duration","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"addMatchingFunds","stateMutability":"nonpayable",
	 "inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"finalizeRound","stateMutability":"nonpayable",
	 "inputs":[],"outputs":[]},
	{"type":"function","name":"contribute","stateMutability":"nonpayable",
	 "inputs":[{"name":"project","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

const sybilGuardABI = `[
	{"type":"function","name":"canContribute","stateMutability":"view",
	 "inputs":[{"name":"donor","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"timeUntilNextContribution","stateMutability":"view",
	 "inputs":[{"name":"donor","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getCooldownPeriod","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`
