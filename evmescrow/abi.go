package evmescrow

// depositorABIJSON is the hashlock escrow contract's ABI, transcribed
// verbatim (selectors, custom errors, events) from the reference
// implementation's ethers-rs Abigen output in
// original_source/src/depositor_contract.rs's __ABI constant. The
// contract source itself is out of scope per spec.md §1; only its
// externally visible interface is needed here.
const depositorABIJSON = `[
  {"inputs":[{"internalType":"bytes32","name":"secretHash","type":"bytes32"}],"type":"error","name":"DepositAlreadyExists"},
  {"inputs":[{"internalType":"bytes32","name":"secretHash","type":"bytes32"}],"type":"error","name":"DepositAlreadyWithdrawn"},
  {"inputs":[{"internalType":"bytes32","name":"secretHash","type":"bytes32"}],"type":"error","name":"DepositDoesNotExist"},
  {"inputs":[],"type":"error","name":"FailedInnerCall"},
  {"inputs":[{"internalType":"uint256","name":"providedLockTime","type":"uint256"},{"internalType":"uint256","name":"minimumLockTime","type":"uint256"}],"type":"error","name":"LockTimeTooShort"},
  {"inputs":[{"internalType":"uint256","name":"currentTime","type":"uint256"},{"internalType":"uint256","name":"lockTime","type":"uint256"}],"type":"error","name":"TimeLockNotExpired"},
  {"inputs":[],"type":"error","name":"ZeroAddressNotAllowed"},
  {"inputs":[],"type":"error","name":"ZeroDepositAmount"},
  {"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"sender","type":"address"},{"indexed":true,"internalType":"address","name":"recipient","type":"address"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"lockTime","type":"uint256"},{"indexed":false,"internalType":"bytes32","name":"secretHash","type":"bytes32"}],"name":"Deposited","type":"event"},
  {"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"sender","type":"address"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"},{"indexed":false,"internalType":"bytes32","name":"secretHash","type":"bytes32"}],"name":"Restored","type":"event"},
  {"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"recipient","type":"address"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"secret","type":"uint256"},{"indexed":false,"internalType":"bytes32","name":"secretHash","type":"bytes32"}],"name":"Withdrawn","type":"event"},
  {"inputs":[],"stateMutability":"view","type":"function","name":"MIN_LOCK_TIME","outputs":[{"internalType":"uint256","name":"","type":"uint256"}]},
  {"inputs":[{"internalType":"address","name":"recipient_","type":"address"},{"internalType":"bytes32","name":"secretHash_","type":"bytes32"},{"internalType":"uint256","name":"lockTime_","type":"uint256"}],"stateMutability":"payable","type":"function","name":"deposit","outputs":[]},
  {"inputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function","name":"deposits","outputs":[{"internalType":"address","name":"sender","type":"address"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"uint256","name":"lockTime","type":"uint256"},{"internalType":"bool","name":"isWithdrawn","type":"bool"}]},
  {"inputs":[{"internalType":"bytes32","name":"secretHash_","type":"bytes32"}],"stateMutability":"nonpayable","type":"function","name":"restore","outputs":[]},
  {"inputs":[{"internalType":"uint256","name":"secret_","type":"uint256"}],"stateMutability":"nonpayable","type":"function","name":"withdraw","outputs":[]}
]`
