// Package encoder turns decoded NMEA 2000 messages into text lines.
//
// EncodeFrame produces SeaSmart $PCDIN lines carrying the raw payload in hex;
// EncodeSentence translates the supported parameter groups into NMEA 0183
// sentences. Both are pure: no I/O, no state, and a false result simply means
// there is nothing to send.
package encoder
