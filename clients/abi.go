package clients

// CollectionABI covers the mint and supply surface of the collection contract.
const CollectionABI = `[
  {"name":"mint","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"quantity","type":"uint256"}],"outputs":[]},
  {"name":"totalSupply","type":"function","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"mintPrice","type":"function","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"mintActive","type":"function","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"name":"MAX_SUPPLY","type":"function","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"MAX_PER_WALLET","type":"function","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"balanceOf","type":"function","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// StablecoinABI is the ERC-20 subset used to pay for mints.
const StablecoinABI = `[
  {"name":"approve","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"name":"allowance","type":"function","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"balanceOf","type":"function","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`
