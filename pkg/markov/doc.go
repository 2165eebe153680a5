/*
Package markov provides an in-memory toolkit for compiling Markov chain models
from a corpus of text fragments and sampling new text from them.

Models are built with a pluggable Tokenizer (words, characters or syllables),
pick their order at random, and are immutable once built: Merge and Extend
return new models. Sampling supports temperature and top-K selection and
reports when no acceptable text could be produced instead of failing.
*/
package markov
