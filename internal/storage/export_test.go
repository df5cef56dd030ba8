package storage

var SplitURL = splitURL
