package cli

// exampleConfig is printed by "olfs serve --example".
const exampleConfig = `log:
  level: info
server:
  listen: ":8080"
  max-connections: 512
  shutdown-timeout: 5s
  monitoring: true
dispatch:
  service-prefix: /opendap
  http-post:
    enabled: false
bes:
  host: localhost
  port: 10022
  client:
    timeout: 5m
    exit-timeout: 1s
    dns-cache: true
catalog:
  type: local
  root: /usr/share/hyrax
cache:
  type: bolt
  path: /var/cache/olfs/responses.db
handlers:
  - type: bot-blocker
    ips: [192.0.2.7]
    patterns: ['^10\.13\.']
  - type: version
  - type: thredds
  - type: wcs
    coverages:
      - id: sst
        dataset: /data/nc/sst.mnmean.nc
        fields:
          - name: sst
        coordinates:
          - name: time
          - name: lat
          - name: lon
  - type: dap
  - type: directory
  - type: file
    root: /usr/share/hyrax
    allow-direct-access: false
`
