package probe

// RemotePath is where the probe script is staged on every target host.
const RemotePath = "/tmp/gpu_probe.py"

// RunCommand executes the staged probe.
const RunCommand = "python3 " + RemotePath

// DependencyCheckCommand verifies the probe's runtime dependencies are
// importable on the target.
const DependencyCheckCommand = `python3 -c 'import pynvml, psutil' 2>&1`

// Install commands for missing dependencies. The unprivileged --user install
// is tried first; Debian-style externally managed environments need the
// second form.
const (
	InstallUserCommand   = "python3 -m pip install --user nvidia-ml-py3 psutil 2>&1"
	InstallSystemCommand = "python3 -m pip install --break-system-packages nvidia-ml-py3 psutil 2>&1"
)

// Script is the probe program staged verbatim onto each GPU host. It emits
// one JSON document (see Report) per invocation and reports its own failures
// through the top-level "error" field rather than the exit code.
const Script = `#!/usr/bin/env python3
import json, sys, time, subprocess
try:
    import pynvml
    from pynvml import *
    import psutil
except ImportError as e:
    print(json.dumps({"error": f"Missing module: {e}. Run: pip install nvidia-ml-py3 psutil"}))
    sys.exit(1)

def safe_int(v, d=0):
    try: return int(v) if v is not None else d
    except: return d

def get_pss_kb(pid):
    try:
        with open(f"/proc/{pid}/smaps_rollup") as f:
            for line in f:
                if line.startswith("Pss:"): return safe_int(line.split()[1])
    except: pass
    return None

def collect():
    result = {"host": {"memory_total_mib": 0, "memory_used_mib": 0, "memory_free_mib": 0,
                       "disk_total_mib": 0, "disk_used_mib": 0, "disk_free_mib": 0, "disk_usage_pct": 0},
              "gpus": [], "error": None, "timestamp": time.time()}
    try:
        nvmlInit()
        vm = psutil.virtual_memory()
        result["host"]["memory_total_mib"] = int(vm.total / 1048576)
        result["host"]["memory_used_mib"] = int(vm.used / 1048576)
        result["host"]["memory_free_mib"] = int(vm.available / 1048576)

        try:
            df = subprocess.run("df -h -x tmpfs -x devtmpfs -x overlay -x nfs -x cifs --total | grep total",
                                shell=True, capture_output=True, text=True, timeout=5)
            parts = df.stdout.strip().split()
            if df.returncode != 0 or len(parts) < 5: raise Exception("df failed")
            def parse_size(s):
                s = s.strip()
                if s[-1] == 'T': return int(float(s[:-1]) * 1048576)
                elif s[-1] == 'G': return int(float(s[:-1]) * 1024)
                elif s[-1] == 'M': return int(float(s[:-1]))
                elif s[-1] == 'K': return int(float(s[:-1]) / 1024)
                return int(s)
            result["host"]["disk_total_mib"] = parse_size(parts[1])
            result["host"]["disk_used_mib"] = parse_size(parts[2])
            result["host"]["disk_free_mib"] = parse_size(parts[3])
            result["host"]["disk_usage_pct"] = int(parts[4].rstrip('%'))
        except:
            disk = psutil.disk_usage("/")
            result["host"]["disk_total_mib"] = int(disk.total / 1048576)
            result["host"]["disk_used_mib"] = int(disk.used / 1048576)
            result["host"]["disk_free_mib"] = int(disk.free / 1048576)
            result["host"]["disk_usage_pct"] = int(disk.percent)

        for i in range(nvmlDeviceGetCount()):
            h = nvmlDeviceGetHandleByIndex(i)
            name_raw = nvmlDeviceGetName(h)
            name = name_raw.decode() if isinstance(name_raw, bytes) else str(name_raw)
            mem = nvmlDeviceGetMemoryInfo(h)
            try: util = nvmlDeviceGetUtilizationRates(h); gpu_util = safe_int(util.gpu)
            except: gpu_util = 0

            entry = {"gpu_index": i, "gpu_name": name,
                     "gpu_memory_total_mib": int(mem.total / 1048576),
                     "gpu_memory_used_mib": int(mem.used / 1048576),
                     "gpu_memory_free_mib": int(mem.free / 1048576),
                     "gpu_utilization_pct": gpu_util,
                     "per_gpu_aggregates": {"process_ram_pss_mib": 0, "process_ram_rss_mib": 0},
                     "processes": []}

            procs = []
            try: procs += list(nvmlDeviceGetComputeRunningProcesses_v3(h))
            except:
                try: procs += list(nvmlDeviceGetComputeRunningProcesses(h))
                except: pass
            try: procs += list(nvmlDeviceGetGraphicsRunningProcesses_v3(h))
            except:
                try: procs += list(nvmlDeviceGetGraphicsRunningProcesses(h))
                except: pass

            total_pss_kb, total_rss_kb = 0, 0
            for pr in procs:
                pid = pr.pid
                used = getattr(pr, "usedGpuMemory", 0) or 0
                p_entry = {"pid": pid, "process_name": "N/A", "cmd": "N/A",
                           "used_mem_mib": int(used / 1048576),
                           "process_ram_pss_mib": 0, "process_ram_rss_mib": 0}
                try:
                    p = psutil.Process(pid)
                    p_entry["process_name"] = p.name()
                    try: p_entry["cmd"] = " ".join(p.cmdline()) or p.exe()
                    except: p_entry["cmd"] = p_entry["process_name"]
                    try:
                        rss = p.memory_info().rss
                        p_entry["process_ram_rss_mib"] = int(rss / 1048576)
                        total_rss_kb += int(rss / 1024)
                        pss_kb = get_pss_kb(pid)
                        if pss_kb:
                            p_entry["process_ram_pss_mib"] = int(pss_kb / 1024)
                            total_pss_kb += pss_kb
                    except: pass
                except: pass
                entry["processes"].append(p_entry)

            entry["per_gpu_aggregates"]["process_ram_pss_mib"] = int(total_pss_kb / 1024)
            entry["per_gpu_aggregates"]["process_ram_rss_mib"] = int(total_rss_kb / 1024)
            result["gpus"].append(entry)
        nvmlShutdown()
    except Exception as e:
        result["error"] = f"Error: {e}"
    return result

if __name__ == "__main__":
    print(json.dumps(collect()))
`
